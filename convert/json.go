package convert

import "encoding/json"

// JSONConverter implements Converter and StreamFramer for
// "application/json": a multi-element stream is framed as `[e1,e2,...]`,
// never newline-delimited JSON.
type JSONConverter struct{}

func (JSONConverter) MediaType() string { return "application/json" }

func (JSONConverter) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONConverter) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

func (JSONConverter) Prefix() []byte    { return []byte{'['} }
func (JSONConverter) Separator() []byte { return []byte{','} }
func (JSONConverter) Suffix() []byte    { return []byte{']'} }

// PlainTextConverter implements Converter for "text/plain", used by the
// last-resort error handler when no richer converter matches the
// request's Accept header.
type PlainTextConverter struct{}

func (PlainTextConverter) MediaType() string { return "text/plain" }

func (PlainTextConverter) Encode(v any) ([]byte, error) {
	switch s := v.(type) {
	case string:
		return []byte(s), nil
	case []byte:
		return s, nil
	case error:
		return []byte(s.Error()), nil
	default:
		return []byte(""), nil
	}
}

func (PlainTextConverter) Decode(data []byte, out any) error {
	switch p := out.(type) {
	case *string:
		*p = string(data)
		return nil
	case *[]byte:
		*p = append((*p)[:0], data...)
		return nil
	}
	return ErrUnsupportedTarget
}

// OctetStreamConverter implements Converter for
// "application/octet-stream", a pass-through raw byte codec.
type OctetStreamConverter struct{}

func (OctetStreamConverter) MediaType() string { return "application/octet-stream" }

func (OctetStreamConverter) Encode(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return nil, ErrUnsupportedTarget
}

func (OctetStreamConverter) Decode(data []byte, out any) error {
	p, ok := out.(*[]byte)
	if !ok {
		return ErrUnsupportedTarget
	}
	*p = append((*p)[:0], data...)
	return nil
}

// EncodeStream encodes elements with conv, wrapping them in conv's framing
// if it implements StreamFramer, or concatenating raw encodings otherwise.
func EncodeStream(conv Converter, elements []any) ([]byte, error) {
	framer, framed := conv.(StreamFramer)
	var out []byte
	if framed {
		out = append(out, framer.Prefix()...)
	}
	for i, el := range elements {
		if framed && i > 0 {
			out = append(out, framer.Separator()...)
		}
		b, err := conv.Encode(el)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	if framed {
		out = append(out, framer.Suffix()...)
	}
	return out, nil
}
