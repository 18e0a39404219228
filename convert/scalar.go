package convert

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// ErrUnsupportedTarget is returned when Decode's out pointer does not
// match any type the converter claims to support.
var ErrUnsupportedTarget = errors.New("convert: unsupported target type")

// Scalar converts request parameter scalars: byte, short, int, long,
// float, double, char, bool, string, big-integer, big-decimal
// (approximated here with *big.Float, Go has no fixed-point decimal in
// the standard library), ISO date/time, URI, and regex pattern.
// Locale/currency/class-name are represented as plain strings since they
// have no canonical Go standard-library type; callers format/parse those
// themselves before calling Scalar.
type Scalar struct{}

// Format renders v as its canonical string parameter representation.
func (Scalar) Format(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case byte:
		return strconv.FormatUint(uint64(x), 10), nil
	case rune:
		return string(x), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case *big.Int:
		return x.String(), nil
	case *big.Float:
		return x.Text('g', -1), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case *url.URL:
		return x.String(), nil
	case *regexp.Regexp:
		return x.String(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedTarget, v)
	}
}

// Parse parses text into the scalar type selected by out, a pointer to
// one of the supported types.
func (Scalar) Parse(text string, out any) error {
	switch p := out.(type) {
	case *string:
		*p = text
		return nil
	case *bool:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return err
		}
		*p = v
		return nil
	case *byte:
		v, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return err
		}
		*p = byte(v)
		return nil
	case *rune:
		r := []rune(text)
		if len(r) != 1 {
			return fmt.Errorf("convert: %q is not a single char", text)
		}
		*p = r[0]
		return nil
	case *int16:
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return err
		}
		*p = int16(v)
		return nil
	case *int:
		v, err := strconv.Atoi(text)
		if err != nil {
			return err
		}
		*p = v
		return nil
	case *int64:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return err
		}
		*p = v
		return nil
	case *float32:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return err
		}
		*p = float32(v)
		return nil
	case *float64:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return err
		}
		*p = v
		return nil
	case **big.Int:
		v, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return fmt.Errorf("convert: %q is not a big integer", text)
		}
		*p = v
		return nil
	case **big.Float:
		v, _, err := big.ParseFloat(text, 10, 200, big.ToNearestEven)
		if err != nil {
			return err
		}
		*p = v
		return nil
	case *time.Time:
		v, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return err
		}
		*p = v
		return nil
	case **url.URL:
		v, err := url.Parse(text)
		if err != nil {
			return err
		}
		*p = v
		return nil
	case **regexp.Regexp:
		v, err := regexp.Compile(text)
		if err != nil {
			return err
		}
		*p = v
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedTarget, out)
	}
}
