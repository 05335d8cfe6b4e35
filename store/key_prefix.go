package store

// Declare database key prefix for objects
const (
	PrefixHeader      = "hdr:"
	PrefixCanonical   = "num:"
	PrefixHeaderMeta  = "hdr_meta:"
	HeaderMetaKeyHead = "head"
)
