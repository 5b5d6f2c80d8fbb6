package archive2

// Msg29 is acknowledged but not decoded; only its size is parsed so the
// record parser can advance the cursor past it (spec.md §3).
type Msg29 struct {
	Size int
}

func decodeMsg29(header MessageHeader) Msg29 {
	return Msg29{Size: header.OversizedSize()}
}
