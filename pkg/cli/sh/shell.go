package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	env "github.com/robotalks/neuron.go/pkg/env/client"
	"github.com/robotalks/neuron.go/pkg/focus"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *focus.Client
	target string
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&FocusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// DoCommand runs a focus command and prints the response.
func DoCommand(c *ishell.Context, cmd string, args ...string) ([]string, error) {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return nil, err
	}
	lines, err := s.Conn.Do(cmd, args...)
	if err != nil {
		c.Err(err)
		return lines, err
	}
	if s.OutputJSON {
		if lines == nil {
			lines = []string{}
		}
		out, err := json.Marshal(map[string]interface{}{"command": cmd, "lines": lines})
		if err != nil {
			c.Err(err)
			return lines, err
		}
		c.Println(string(out))
		return lines, nil
	}
	if len(lines) == 0 && len(args) > 0 {
		c.Println("OK")
		return lines, nil
	}
	for _, line := range lines {
		c.Println(line)
	}
	return lines, nil
}

// FocusFunc creates a command func sending cmd with the shell arguments.
func FocusFunc(cmd string) func(c *ishell.Context) {
	return MustBeConnected(func(c *ishell.Context) {
		DoCommand(c, cmd, c.Args...)
	})
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens a focus endpoint, replacing the current one.
func (s *Shell) Connect(target string) error {
	conf := *s.Config
	conf.Target = target
	conn, err := conf.Dial()
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn, s.target = conn, target
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", target))
	return nil
}

// Disconnect closes current endpoint.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn, s.target = nil, ""
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Target != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Target)
		}
		if err := s.Connect(s.Config.Target); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Target, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a focus endpoint.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "TARGET (serial device, tcp://host:port, ws://host:port/focus)",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			target := s.Config.Target
			if len(c.Args) > 0 {
				target = c.Args[0]
			}
			if target == "" {
				c.Err(fmt.Errorf("TARGET required"))
				return
			}
			if err := s.Connect(target); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current endpoint.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// FocusCmd sends a raw command line.
	FocusCmd = ishell.Cmd{
		Name:    "focus",
		Aliases: []string{"f"},
		Help:    "COMMAND [ARGS...]",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("COMMAND required"))
				return
			}
			DoCommand(c, c.Args[0], c.Args[1:]...)
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
