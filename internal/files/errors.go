package files

import "errors"

var (
	ErrNotOpen     = errors.New("file is not open")
	ErrAlreadyOpen = errors.New("file is already open")
	ErrInvalidMode = errors.New("invalid file mode")
	ErrNotReadable = errors.New("file mode does not allow reading")
	ErrNotWritable = errors.New("file mode does not allow writing")
)
