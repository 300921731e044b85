package domain

// ImageState tracks whether an attachment's image fields have been computed.
type ImageState int

const (
	ImageUnresolved ImageState = iota
	ImageResolved
	ImageNotAnImage
)

func (s ImageState) String() string {
	switch s {
	case ImageResolved:
		return "image"
	case ImageNotAnImage:
		return "not_image"
	default:
		return "unresolved"
	}
}

// ImageInfo is the payload of an attachment confirmed to be an image.
type ImageInfo struct {
	Format              string
	Size                ImageSize
	ResizedRelativePath string
	ResizedLength       int64
	ResizedSize         ImageSize
}

// ImageResolution is the outcome of running the image pipeline once.
// Info is meaningful only when State is ImageResolved. Reason carries the
// cause of an ImageNotAnImage outcome for logging; it is never returned to callers.
type ImageResolution struct {
	State  ImageState
	Info   ImageInfo
	Reason error
}

func ResolvedImage(info ImageInfo) ImageResolution {
	return ImageResolution{State: ImageResolved, Info: info}
}

func NotAnImage(reason error) ImageResolution {
	return ImageResolution{State: ImageNotAnImage, Reason: reason}
}
