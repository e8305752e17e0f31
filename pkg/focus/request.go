// Package focus implements the host configuration protocol: line based
// commands like "wireless.battery.savingMode 1", answered by values and
// terminated by a line holding a single dot.
package focus

import (
	"fmt"
	"strconv"
	"strings"
)

// Terminator ends every response.
const Terminator = "\r\n.\r\n"

// Request is one command with its arguments and collected output.
// Without arguments a command reads, with arguments it writes.
type Request struct {
	Command string

	args  []string
	pos   int
	lines []string
	line  []string
}

// NewRequest creates a request.
func NewRequest(cmd string, args ...string) *Request {
	return &Request{Command: cmd, args: args}
}

// ParseRequest splits a command line on white spaces.
func ParseRequest(line string) *Request {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return &Request{}
	}
	return NewRequest(fields[0], fields[1:]...)
}

// Sub returns the command suffix after prefix.
func (r *Request) Sub(prefix string) (string, bool) {
	if !strings.HasPrefix(r.Command, prefix) {
		return "", false
	}
	return r.Command[len(prefix):], true
}

// IsEOL reports whether all arguments are consumed.
func (r *Request) IsEOL() bool {
	return r.pos >= len(r.args)
}

// Args returns the remaining arguments.
func (r *Request) Args() []string {
	return r.args[r.pos:]
}

// Next consumes an argument.
func (r *Request) Next() (string, error) {
	if r.IsEOL() {
		return "", ErrMissingArgument
	}
	arg := r.args[r.pos]
	r.pos++
	return arg, nil
}

func (r *Request) readUint(bits int) (uint64, error) {
	arg, err := r.Next()
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseUint(arg, 0, bits)
	if err != nil {
		return 0, &ArgumentError{Command: r.Command, Arg: arg, Err: err}
	}
	return val, nil
}

// ReadUint8 consumes a byte argument.
func (r *Request) ReadUint8() (uint8, error) {
	v, err := r.readUint(8)
	return uint8(v), err
}

// ReadUint16 consumes a 16-bit argument.
func (r *Request) ReadUint16() (uint16, error) {
	v, err := r.readUint(16)
	return uint16(v), err
}

// ReadUint32 consumes a 32-bit argument.
func (r *Request) ReadUint32() (uint32, error) {
	v, err := r.readUint(32)
	return uint32(v), err
}

// ReadBool consumes 0/1 or true/false.
func (r *Request) ReadBool() (bool, error) {
	arg, err := r.Next()
	if err != nil {
		return false, err
	}
	val, err := strconv.ParseBool(arg)
	if err != nil {
		return false, &ArgumentError{Command: r.Command, Arg: arg, Err: err}
	}
	return val, nil
}

// Send appends values to the current output line.
func (r *Request) Send(vals ...interface{}) {
	for _, v := range vals {
		switch val := v.(type) {
		case bool:
			if val {
				r.line = append(r.line, "1")
			} else {
				r.line = append(r.line, "0")
			}
		default:
			r.line = append(r.line, fmt.Sprint(v))
		}
	}
}

// SendLine terminates the current line and adds s as a full line.
func (r *Request) SendLine(s string) {
	r.flush()
	r.lines = append(r.lines, s)
}

func (r *Request) flush() {
	if len(r.line) > 0 {
		r.lines = append(r.lines, strings.Join(r.line, " "))
		r.line = nil
	}
}

// Output returns the output lines.
func (r *Request) Output() []string {
	r.flush()
	return r.lines
}

// Response renders the output with the terminator.
func (r *Request) Response() string {
	return strings.Join(r.Output(), "\r\n") + Terminator
}
