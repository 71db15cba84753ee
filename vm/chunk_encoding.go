package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Chunk serialization: canonical CBOR for the compile cache
// ---------------------------------------------------------------------------

// ChunkFormatVersion is the serialized chunk format version. Increment
// when making incompatible changes; decoders reject newer versions.
const ChunkFormatVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Value kind tags in the encoded constant pool. Symbols are encoded by
// name and re-interned at decode time, since ids are VM-local.
const (
	encFloat uint8 = iota
	encBool
	encChar
	encSymbol
	encString
	encEmpty
	encVoid
	encPair
	encVector
	encChunk
)

type encodedValue struct {
	Kind  uint8          `cbor:"1,keyasint"`
	Num   float64        `cbor:"2,keyasint,omitempty"`
	Flag  bool           `cbor:"3,keyasint,omitempty"`
	Str   string         `cbor:"4,keyasint,omitempty"`
	Car   *encodedValue  `cbor:"5,keyasint,omitempty"`
	Cdr   *encodedValue  `cbor:"6,keyasint,omitempty"`
	Elems []encodedValue `cbor:"7,keyasint,omitempty"`
	Chunk *encodedChunk  `cbor:"8,keyasint,omitempty"`
}

type encodedUpvalue struct {
	Index   uint8 `cbor:"1,keyasint"`
	IsLocal bool  `cbor:"2,keyasint"`
}

type encodedChunk struct {
	Version   uint16           `cbor:"1,keyasint"`
	Code      []byte           `cbor:"2,keyasint"`
	Constants []encodedValue   `cbor:"3,keyasint"`
	Upvalues  []encodedUpvalue `cbor:"4,keyasint,omitempty"`
	NumParams uint8            `cbor:"5,keyasint"`
	Variadic  bool             `cbor:"6,keyasint,omitempty"`
	MaxStack  int              `cbor:"7,keyasint"`
	Name      string           `cbor:"8,keyasint,omitempty"`
}

// EncodeChunk serializes a chunk, including nested lambda chunks in its
// constant pool, to canonical CBOR.
func EncodeChunk(vm *VM, ch *Chunk) ([]byte, error) {
	ec, err := vm.encodeChunk(ch)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(ec)
}

// DecodeChunk deserializes a chunk into the heap and returns its handle.
func DecodeChunk(vm *VM, data []byte) (Handle, error) {
	var ec encodedChunk
	if err := cbor.Unmarshal(data, &ec); err != nil {
		return 0, fmt.Errorf("vm: unmarshal chunk: %w", err)
	}
	if ec.Version > ChunkFormatVersion {
		return 0, fmt.Errorf("vm: chunk format version %d is newer than supported %d",
			ec.Version, ChunkFormatVersion)
	}
	return vm.decodeChunk(&ec)
}

func (vm *VM) encodeChunk(ch *Chunk) (*encodedChunk, error) {
	ec := &encodedChunk{
		Version:   ChunkFormatVersion,
		Code:      ch.Code,
		NumParams: ch.NumParams,
		Variadic:  ch.Variadic,
		MaxStack:  ch.MaxStack,
		Name:      ch.Name,
	}
	for _, u := range ch.Upvalues {
		ec.Upvalues = append(ec.Upvalues, encodedUpvalue{Index: u.Index, IsLocal: u.IsLocal})
	}
	for _, c := range ch.Constants {
		ev, err := vm.encodeValue(c)
		if err != nil {
			return nil, err
		}
		ec.Constants = append(ec.Constants, *ev)
	}
	return ec, nil
}

func (vm *VM) encodeValue(v Value) (*encodedValue, error) {
	switch {
	case v.IsFloat():
		return &encodedValue{Kind: encFloat, Num: v.AsFloat()}, nil
	case v.IsBool():
		return &encodedValue{Kind: encBool, Flag: v.AsBool()}, nil
	case v.IsChar():
		return &encodedValue{Kind: encChar, Num: float64(v.AsChar())}, nil
	case v.IsSymbol():
		return &encodedValue{Kind: encSymbol, Str: vm.Symbols.Name(v.SymbolID())}, nil
	case v.IsEmpty():
		return &encodedValue{Kind: encEmpty}, nil
	case v.IsVoid():
		return &encodedValue{Kind: encVoid}, nil
	case v.IsObject():
		switch o := vm.Heap.Get(v.Handle()).(type) {
		case *MutString:
			return &encodedValue{Kind: encString, Str: o.String()}, nil
		case *Pair:
			car, err := vm.encodeValue(o.Car)
			if err != nil {
				return nil, err
			}
			cdr, err := vm.encodeValue(o.Cdr)
			if err != nil {
				return nil, err
			}
			return &encodedValue{Kind: encPair, Car: car, Cdr: cdr}, nil
		case *Vector:
			ev := &encodedValue{Kind: encVector}
			for _, e := range o.Elems {
				ee, err := vm.encodeValue(e)
				if err != nil {
					return nil, err
				}
				ev.Elems = append(ev.Elems, *ee)
			}
			return ev, nil
		case *Chunk:
			ec, err := vm.encodeChunk(o)
			if err != nil {
				return nil, err
			}
			return &encodedValue{Kind: encChunk, Chunk: ec}, nil
		}
	}
	return nil, fmt.Errorf("vm: %s cannot appear in a serialized constant pool", vm.WriteString(v))
}

func (vm *VM) decodeChunk(ec *encodedChunk) (Handle, error) {
	ch := &Chunk{
		Code:      ec.Code,
		NumParams: ec.NumParams,
		Variadic:  ec.Variadic,
		MaxStack:  ec.MaxStack,
		Name:      ec.Name,
	}
	h := vm.Heap.Alloc(ch)
	pin := vm.Heap.Pin(FromObject(h))
	defer vm.Heap.Unpin(pin)

	for _, u := range ec.Upvalues {
		ch.Upvalues = append(ch.Upvalues, UpvalueDesc{Index: u.Index, IsLocal: u.IsLocal})
	}
	for i := range ec.Constants {
		v, err := vm.decodeValue(&ec.Constants[i])
		if err != nil {
			return 0, err
		}
		ch.Constants = append(ch.Constants, v)
	}
	return h, nil
}

func (vm *VM) decodeValue(ev *encodedValue) (Value, error) {
	switch ev.Kind {
	case encFloat:
		return FromFloat(ev.Num), nil
	case encBool:
		return FromBool(ev.Flag), nil
	case encChar:
		return FromChar(rune(int32(ev.Num))), nil
	case encSymbol:
		return vm.Symbols.Symbol(ev.Str), nil
	case encString:
		return vm.StringValue(ev.Str), nil
	case encEmpty:
		return Empty, nil
	case encVoid:
		return Void, nil
	case encPair:
		car, err := vm.decodeValue(ev.Car)
		if err != nil {
			return Void, err
		}
		cdr, err := vm.decodeValue(ev.Cdr)
		if err != nil {
			return Void, err
		}
		return vm.Cons(car, cdr), nil
	case encVector:
		elems := make([]Value, len(ev.Elems))
		for i := range ev.Elems {
			e, err := vm.decodeValue(&ev.Elems[i])
			if err != nil {
				return Void, err
			}
			elems[i] = e
		}
		return FromObject(vm.Heap.Alloc(&Vector{Elems: elems})), nil
	case encChunk:
		h, err := vm.decodeChunk(ev.Chunk)
		if err != nil {
			return Void, err
		}
		return FromObject(h), nil
	default:
		return Void, fmt.Errorf("vm: unknown encoded value kind %d", ev.Kind)
	}
}
