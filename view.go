package slab

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// ValueView is a typed cursor over one scalar field or one array element.
// It borrows the container's bytes and must not be kept across schema
// changes or releases; get a fresh one per access.
type ValueView struct {
	vt ValueType
	b  []byte
}

// NewValueView checks that b is exactly one element of vt. TypeUnknown
// views may span any length.
func NewValueView(vt ValueType, b []byte) (ValueView, error) {
	if vt != TypeUnknown && len(b) != vt.Width() {
		return ValueView{}, fmt.Errorf("%w: %s view over %d bytes", ErrWidthMismatch, vt, len(b))
	}
	return ValueView{vt: vt, b: b}, nil
}

func (v ValueView) Type() ValueType { return v.vt }

// Bytes is the borrowed element bytes.
func (v ValueView) Bytes() []byte { return v.b }

func (v ValueView) Len() int { return len(v.b) }

func (v ValueView) Int() int64 { return loadNumber(v.b, v.vt).int() }

func (v ValueView) Uint() uint64 { return loadNumber(v.b, v.vt).uint() }

func (v ValueView) Float() float64 { return loadNumber(v.b, v.vt).float() }

func (v ValueView) Bool() bool { return loadNumber(v.b, v.vt).bool() }

// Ref reads the element as a child reference.
func (v ValueView) Ref() (ContainerReference, error) {
	if v.vt != TypeRef {
		return Empty, fmt.Errorf("%w: %s view read as reference", ErrStructuralMismatch, v.vt)
	}
	return ContainerReference(load[uint64](v.b)), nil
}

func (v ValueView) SetInt(x int64) error {
	return v.set(number{class: numSigned, i: x})
}

func (v ValueView) SetUint(x uint64) error {
	return v.set(number{class: numUnsigned, u: x})
}

func (v ValueView) SetFloat(x float64) error {
	return v.set(number{class: numFloat, f: x})
}

func (v ValueView) SetBool(x bool) error {
	return v.set(number{class: numUnsigned, u: uint64(b2u(x))})
}

// SetRef writes a child reference into a reference element.
func (v ValueView) SetRef(r ContainerReference) error {
	if v.vt != TypeRef {
		return fmt.Errorf("%w: reference written to %s view", ErrStructuralMismatch, v.vt)
	}
	store(v.b, uint64(r))
	return nil
}

func (v ValueView) set(n number) error {
	switch v.vt {
	case TypeRef:
		return fmt.Errorf("%w: value written to reference view", ErrStructuralMismatch)
	case TypeUnknown:
		return fmt.Errorf("%w: untyped view", ErrUnsupported)
	}
	storeNumber(v.b, v.vt, n)
	return nil
}

// Text renders the element canonically: decimal integers, shortest
// round-trip floats, true/false, the character itself, #id for references.
// Untyped views render as hex.
func (v ValueView) Text() string {
	switch {
	case v.vt == TypeBool:
		return strconv.FormatBool(v.Bool())
	case v.vt.IsSigned():
		return strconv.FormatInt(v.Int(), 10)
	case v.vt == TypeFloat32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case v.vt == TypeFloat64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case v.vt == TypeChar:
		return string(v.b[:1])
	case v.vt == TypeRef:
		return ContainerReference(load[uint64](v.b)).String()
	case v.vt == TypeUnknown:
		return v.Hex()
	}
	return strconv.FormatUint(v.Uint(), 10)
}

// Hex renders the raw little-endian bytes.
func (v ValueView) Hex() string { return hex.EncodeToString(v.b) }

// SetText parses s in the view's own kind and stores it. On failure the
// element is unchanged.
func (v ValueView) SetText(s string) error {
	bits := v.vt.Width() * 8
	var err error
	switch {
	case v.vt == TypeBool:
		var x bool
		if x, err = strconv.ParseBool(s); err == nil {
			return v.SetBool(x)
		}
	case v.vt.IsSigned():
		var x int64
		if x, err = strconv.ParseInt(s, 10, bits); err == nil {
			return v.SetInt(x)
		}
	case v.vt.IsFloat():
		var x float64
		if x, err = strconv.ParseFloat(s, bits); err == nil {
			return v.SetFloat(x)
		}
	case v.vt == TypeChar:
		if len(s) != 1 {
			return fmt.Errorf("%w: %q is not one byte", ErrInvalidText, s)
		}
		v.b[0] = s[0]
		return nil
	case v.vt == TypeRef:
		r, ok := ParseReference(s)
		if !ok {
			return fmt.Errorf("%w: %q is not a reference", ErrInvalidText, s)
		}
		return v.SetRef(r)
	case v.vt == TypeUnknown:
		raw, herr := hex.DecodeString(s)
		if herr != nil || len(raw) != len(v.b) {
			return fmt.Errorf("%w: %q is not %d hex bytes", ErrInvalidText, s, len(v.b))
		}
		copy(v.b, raw)
		return nil
	default:
		var x uint64
		if x, err = strconv.ParseUint(s, 10, bits); err == nil {
			return v.SetUint(x)
		}
	}
	return fmt.Errorf("%w: %q as %s: %v", ErrInvalidText, s, v.vt, err)
}
