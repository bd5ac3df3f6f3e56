package slab

// FieldInfo is a rendered field used by dumps and inspection output.
type FieldInfo struct {
	Name   string   `json:"name" yaml:"name"`
	Type   string   `json:"type" yaml:"type"`
	Ref    bool     `json:"ref,omitempty" yaml:"ref,omitempty"`
	Array  bool     `json:"array,omitempty" yaml:"array,omitempty"`
	Offset int      `json:"offset" yaml:"offset"`
	Length int      `json:"length" yaml:"length"`
	Values []string `json:"values" yaml:"values,flow"`
}

// ContainerInfo is a rendered point-in-time copy of one container.
type ContainerInfo struct {
	ID         uint64      `json:"id" yaml:"id"`
	Generation uint64      `json:"generation" yaml:"generation"`
	Version    uint64      `json:"version" yaml:"version"`
	Stride     int         `json:"stride" yaml:"stride"`
	Fields     []FieldInfo `json:"fields" yaml:"fields"`
}

// Describe renders every field of c with ValueView text. Untyped fields
// render as one hex string; char arrays as one string.
func Describe(c *Container) ContainerInfo {
	info := ContainerInfo{
		ID:         c.ID(),
		Generation: c.Generation(),
		Version:    c.Version,
		Stride:     c.schema.stride,
	}
	for i := range c.schema.fields {
		h, _ := c.FieldHeader(i)
		fi := FieldInfo{
			Name:   h.Name(),
			Type:   h.Type().String(),
			Ref:    h.IsRef(),
			Array:  h.IsArray(),
			Offset: h.DataOffset(),
			Length: h.Length(),
		}
		switch h.Type() {
		case TypeUnknown:
			v, _ := NewValueView(TypeUnknown, c.data(i))
			fi.Values = []string{v.Hex()}
		case TypeChar:
			s, _ := ReadString(c, h.Name())
			fi.Values = []string{s}
		default:
			for j := 0; j < h.Count(); j++ {
				v, err := c.ElementView(h, j)
				if err != nil {
					break
				}
				fi.Values = append(fi.Values, v.Text())
			}
		}
		info.Fields = append(info.Fields, fi)
	}
	return info
}

// DescribeAll renders every live entry of a registry snapshot, skipping
// entries that went stale.
func DescribeAll(entries []SnapshotEntry) []ContainerInfo {
	out := make([]ContainerInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Live() {
			continue
		}
		out = append(out, Describe(e.Container))
	}
	return out
}
