package enums

// MediaKind distinguishes gallery entries on an item.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

var mediaKinds = newClosedSet("media kind", MediaKindImage, MediaKindVideo)

func (m MediaKind) String() string { return string(m) }

func (m MediaKind) IsValid() bool { return mediaKinds.has(m) }

func ParseMediaKind(value string) (MediaKind, error) { return mediaKinds.parse(value) }
