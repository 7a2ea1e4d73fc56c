package ports

// FrameProcessor transforms a decoded frame on its way to a sink. Processors
// may modify the frame in place and must return it (or a replacement).
type FrameProcessor interface {
	Process(frame *Frame) (*Frame, error)
}

// ProcessorChain applies processors in order.
type ProcessorChain []FrameProcessor

// Process runs the frame through every processor, stopping at the first
// error.
func (c ProcessorChain) Process(frame *Frame) (*Frame, error) {
	var err error
	for _, p := range c {
		frame, err = p.Process(frame)
		if err != nil {
			return nil, err
		}
	}
	return frame, nil
}

var _ FrameProcessor = (ProcessorChain)(nil)
