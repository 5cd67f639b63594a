package format

import "sort"

// Selection is a bitmask of acceptable MemoryFormats, mirroring
// MemoryFormatSelection in memory_format_selection.rs. Callers of the Loader
// API restrict which formats a worker is allowed to hand back this way.
type Selection uint32

const (
	SelB8g8r8a8Premultiplied          Selection = 1 << 0
	SelA8r8g8b8Premultiplied          Selection = 1 << 1
	SelR8g8b8a8Premultiplied          Selection = 1 << 2
	SelB8g8r8a8                       Selection = 1 << 3
	SelA8r8g8b8                       Selection = 1 << 4
	SelR8g8b8a8                       Selection = 1 << 5
	SelA8b8g8r8                       Selection = 1 << 6
	SelR8g8b8                         Selection = 1 << 7
	SelB8g8r8                         Selection = 1 << 8
	SelR16g16b16                      Selection = 1 << 9
	SelR16g16b16a16Premultiplied      Selection = 1 << 10
	SelR16g16b16a16                   Selection = 1 << 11
	SelR16g16b16Float                 Selection = 1 << 12
	SelR16g16b16a16Float              Selection = 1 << 13
	SelR32g32b32Float                 Selection = 1 << 14
	SelR32g32b32a32FloatPremultiplied Selection = 1 << 15
	SelR32g32b32a32Float              Selection = 1 << 16
	SelG8a8Premultiplied              Selection = 1 << 17
	SelG8a8                           Selection = 1 << 18
	SelG8                             Selection = 1 << 19
	SelG16a16Premultiplied            Selection = 1 << 20
	SelG16a16                         Selection = 1 << 21
	SelG16                            Selection = 1 << 22

	SelectionAll Selection = 1<<23 - 1
)

var selectionOrder = []struct {
	sel Selection
	fmt MemoryFormat
}{
	{SelB8g8r8a8Premultiplied, B8g8r8a8Premultiplied},
	{SelA8r8g8b8Premultiplied, A8r8g8b8Premultiplied},
	{SelR8g8b8a8Premultiplied, R8g8b8a8Premultiplied},
	{SelB8g8r8a8, B8g8r8a8},
	{SelA8r8g8b8, A8r8g8b8},
	{SelR8g8b8a8, R8g8b8a8},
	{SelA8b8g8r8, A8b8g8r8},
	{SelR8g8b8, R8g8b8},
	{SelB8g8r8, B8g8r8},
	{SelR16g16b16, R16g16b16},
	{SelR16g16b16a16Premultiplied, R16g16b16a16Premultiplied},
	{SelR16g16b16a16, R16g16b16a16},
	{SelR16g16b16Float, R16g16b16Float},
	{SelR16g16b16a16Float, R16g16b16a16Float},
	{SelR32g32b32Float, R32g32b32Float},
	{SelR32g32b32a32FloatPremultiplied, R32g32b32a32FloatPremultiplied},
	{SelR32g32b32a32Float, R32g32b32a32Float},
	{SelG8a8Premultiplied, G8a8Premultiplied},
	{SelG8a8, G8a8},
	{SelG8, G8},
	{SelG16a16Premultiplied, G16a16Premultiplied},
	{SelG16a16, G16a16},
	{SelG16, G16},
}

// MemoryFormats lists the formats selected by s, in declaration order.
func (s Selection) MemoryFormats() []MemoryFormat {
	out := make([]MemoryFormat, 0, len(selectionOrder))
	for _, e := range selectionOrder {
		if s&e.sel != 0 {
			out = append(out, e.fmt)
		}
	}
	return out
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// BestFormatFor picks the selected format that best represents src without
// unnecessary loss or bloat. Mirrors MemoryFormatSelection::best_format_for:
// an exact match wins outright; otherwise candidates are ranked by
// alpha-presence match, having at least as many channels, matching channel
// type, having at least as wide a channel type, then tie-broken toward
// fewer channels and smaller channel types.
func (s Selection) BestFormatFor(src MemoryFormat) (MemoryFormat, bool) {
	formats := s.MemoryFormats()

	for _, f := range formats {
		if f == src {
			return src, true
		}
	}
	if len(formats) == 0 {
		return 0, false
	}

	type scored struct {
		key [6]int
		fmt MemoryFormat
	}
	items := make([]scored, 0, len(formats))
	for _, f := range formats {
		items = append(items, scored{
			key: [6]int{
				boolRank(f.HasAlpha() == src.HasAlpha()),
				boolRank(f.NChannels() >= src.NChannels()),
				boolRank(f.ChannelType() == src.ChannelType()),
				boolRank(f.ChannelType().Size() >= src.ChannelType().Size()),
				-f.NChannels(),
				-f.ChannelType().Size(),
			},
			fmt: f,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		for k := 0; k < 6; k++ {
			if items[i].key[k] != items[j].key[k] {
				return items[i].key[k] < items[j].key[k]
			}
		}
		return false
	})

	return items[len(items)-1].fmt, true
}
