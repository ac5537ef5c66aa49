package geosite

import (
	"fmt"
	"strings"
)

const (
	wireVarint          = 0
	wireFixed64         = 1
	wireLengthDelimited = 2
	wireStartGroup      = 3
	wireEndGroup        = 4
	wireFixed32         = 5
)

// reader walks protobuf wire format without generated code, the dataset only
// uses a handful of field shapes.
type reader struct {
	data []byte
	off  int
}

func (r *reader) more() bool {
	return r.off < len(r.data)
}

func (r *reader) varint() (uint64, error) {
	var value uint64
	var shift uint
	for {
		if r.off >= len(r.data) {
			return 0, fmt.Errorf("unexpected end of data")
		}
		b := r.data[r.off]
		r.off++
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("varint overflow")
		}
	}
}

func (r *reader) tag() (int, int, error) {
	val, err := r.varint()
	if err != nil {
		return 0, 0, err
	}
	if val == 0 {
		return 0, 0, fmt.Errorf("invalid tag 0")
	}
	return int(val >> 3), int(val & 0x7), nil
}

func (r *reader) bytes() ([]byte, error) {
	length, err := r.varint()
	if err != nil {
		return nil, err
	}
	if length > uint64(len(r.data)-r.off) {
		return nil, fmt.Errorf("invalid length %d", length)
	}
	start := r.off
	r.off += int(length)
	return r.data[start:r.off], nil
}

func (r *reader) str() (string, error) {
	raw, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (r *reader) advance(n int) error {
	if r.off+n > len(r.data) {
		return fmt.Errorf("unexpected end of data")
	}
	r.off += n
	return nil
}

func (r *reader) skip(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := r.varint()
		return err
	case wireFixed64:
		return r.advance(8)
	case wireLengthDelimited:
		_, err := r.bytes()
		return err
	case wireStartGroup:
		for {
			_, next, err := r.tag()
			if err != nil {
				return err
			}
			if next == wireEndGroup {
				return nil
			}
			if err := r.skip(next); err != nil {
				return err
			}
		}
	case wireEndGroup:
		return nil
	case wireFixed32:
		return r.advance(4)
	default:
		return fmt.Errorf("unsupported wire type %d", wireType)
	}
}

// decodeList decodes a whole geosite dataset into category keyed entries.
func decodeList(data []byte) (map[string][]Domain, error) {
	result := make(map[string][]Domain)
	r := &reader{data: data}
	for r.more() {
		fieldNum, wireType, err := r.tag()
		if err != nil {
			return nil, err
		}
		if fieldNum != 1 || wireType != wireLengthDelimited {
			if err := r.skip(wireType); err != nil {
				return nil, err
			}
			continue
		}
		msg, err := r.bytes()
		if err != nil {
			return nil, err
		}
		name, domains, err := decodeCategory(msg)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		result[name] = append(result[name], domains...)
	}
	return result, nil
}

func decodeCategory(data []byte) (string, []Domain, error) {
	r := &reader{data: data}
	name := ""
	var domains []Domain
	for r.more() {
		fieldNum, wireType, err := r.tag()
		if err != nil {
			return "", nil, err
		}
		switch fieldNum {
		case 1: // country_code
			if wireType != wireLengthDelimited {
				return "", nil, fmt.Errorf("unexpected wire type %d for GeoSite.country_code", wireType)
			}
			str, err := r.str()
			if err != nil {
				return "", nil, err
			}
			name = strings.ToLower(strings.TrimSpace(str))
		case 2: // domain
			if wireType != wireLengthDelimited {
				return "", nil, fmt.Errorf("unexpected wire type %d for GeoSite.domain", wireType)
			}
			msg, err := r.bytes()
			if err != nil {
				return "", nil, err
			}
			domain, err := decodeDomain(msg)
			if err != nil {
				return "", nil, err
			}
			domains = append(domains, domain)
		default:
			if err := r.skip(wireType); err != nil {
				return "", nil, err
			}
		}
	}
	return name, domains, nil
}

func decodeDomain(data []byte) (Domain, error) {
	r := &reader{data: data}
	result := Domain{
		Attributes: make(map[string]Attribute),
	}
	for r.more() {
		fieldNum, wireType, err := r.tag()
		if err != nil {
			return Domain{}, err
		}
		switch fieldNum {
		case 1: // type
			if wireType != wireVarint {
				return Domain{}, fmt.Errorf("unexpected wire type %d for Domain.type", wireType)
			}
			val, err := r.varint()
			if err != nil {
				return Domain{}, err
			}
			result.Type = DomainType(val)
		case 2: // value
			if wireType != wireLengthDelimited {
				return Domain{}, fmt.Errorf("unexpected wire type %d for Domain.value", wireType)
			}
			str, err := r.str()
			if err != nil {
				return Domain{}, err
			}
			if result.Type == DomainTypeRegex {
				result.Value = strings.TrimSpace(str)
			} else {
				result.Value = strings.ToLower(strings.TrimSpace(str))
			}
		case 3: // attribute
			if wireType != wireLengthDelimited {
				return Domain{}, fmt.Errorf("unexpected wire type %d for Domain.attribute", wireType)
			}
			msg, err := r.bytes()
			if err != nil {
				return Domain{}, err
			}
			attr, key, err := decodeAttribute(msg)
			if err != nil {
				return Domain{}, err
			}
			if key != "" {
				result.Attributes[key] = attr
			}
		default:
			if err := r.skip(wireType); err != nil {
				return Domain{}, err
			}
		}
	}
	if result.Value == "" {
		return Domain{}, fmt.Errorf("empty domain value")
	}
	return result, nil
}

func decodeAttribute(data []byte) (Attribute, string, error) {
	r := &reader{data: data}
	key := ""
	attr := Attribute{}
	for r.more() {
		fieldNum, wireType, err := r.tag()
		if err != nil {
			return Attribute{}, "", err
		}
		switch fieldNum {
		case 1:
			if wireType != wireLengthDelimited {
				return Attribute{}, "", fmt.Errorf("unexpected wire type %d for Attribute.key", wireType)
			}
			str, err := r.str()
			if err != nil {
				return Attribute{}, "", err
			}
			key = strings.ToLower(strings.TrimSpace(str))
		case 2:
			if wireType != wireVarint {
				return Attribute{}, "", fmt.Errorf("unexpected wire type %d for Attribute.bool_value", wireType)
			}
			val, err := r.varint()
			if err != nil {
				return Attribute{}, "", err
			}
			boolean := val != 0
			attr.BoolValue = &boolean
		case 3:
			if wireType != wireVarint {
				return Attribute{}, "", fmt.Errorf("unexpected wire type %d for Attribute.int_value", wireType)
			}
			val, err := r.varint()
			if err != nil {
				return Attribute{}, "", err
			}
			intVal := int64(val)
			attr.IntValue = &intVal
		default:
			if err := r.skip(wireType); err != nil {
				return Attribute{}, "", err
			}
		}
	}
	return attr, key, nil
}
