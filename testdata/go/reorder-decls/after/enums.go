package enums

type LogLevel int

const (
	Debug LogLevel = iota
	Info
	Warn
	Error
)

type Color int

const (
	Red   Color = iota
	Green
	Blue
)

func (c Color) String() string {
	return "color"
}
