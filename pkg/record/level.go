package record

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Level is the severity of a record. Levels are ordered from least to most severe.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Critical
)

var levelNames = [...]string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

func (l Level) String() string {
	if l < Debug || l > Critical {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// IsError reports whether records of this level belong in the error collection.
func (l Level) IsError() bool {
	return l >= Error
}

// ParseLevel converts a case-insensitive level name to a Level.
// WARN and FATAL are accepted as aliases of WARNING and CRITICAL.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return Debug, nil
	case "INFO":
		return Info, nil
	case "WARNING", "WARN":
		return Warning, nil
	case "ERROR":
		return Error, nil
	case "CRITICAL", "FATAL":
		return Critical, nil
	default:
		return Debug, fmt.Errorf("invalid log level: %q", s)
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalBSONValue stores levels by name so documents written to Mongo read the same
// as the JSON ones.
func (l Level) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(l.String())
}

func (l *Level) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	name, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("decoding level: unexpected BSON type %s", t)
	}
	return l.UnmarshalText([]byte(name))
}
