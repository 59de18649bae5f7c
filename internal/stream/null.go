package stream

func init() {
	Register("null", func(Options) (Backend, error) {
		return &NullBackend{}, nil
	})
}

// NullBackend accepts every frame and discards it. Useful for running the
// server without a texture consumer attached.
type NullBackend struct{}

func (b *NullBackend) CreateOrResize(name string, width, height, channels int) (Target, error) {
	if err := validateShape(name, width, height, channels); err != nil {
		return nil, err
	}
	return &nullTarget{name: name, want: width * height * channels}, nil
}

func (b *NullBackend) Close() error { return nil }

type nullTarget struct {
	name string
	want int
}

func (t *nullTarget) Name() string { return t.name }

func (t *nullTarget) Send(pixels []float32) error {
	if len(pixels) != t.want {
		return backendErrorf(ErrKindSendFailed, "frame for %s has %d values, want %d", t.name, len(pixels), t.want)
	}
	return nil
}

func (t *nullTarget) Release() {}
