package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/boilerbudget/internal/client/identity"
	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/rpc"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	return readLine(reader)
}

// GetPassword prints a password prompt to w and reads a password
// from the terminal fd without echo.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(fd int, prompt string, w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Console is the terminal the app talks through. Passwords are read without
// echo when the input is a terminal and as plain lines otherwise.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the input terminal, -1 when the input is not one.
	fd int
}

var _ identity.Prompt = (*Console)(nil)

func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.fd = int(f.Fd())
	}
	return c
}

func (c *Console) Print(a ...any) {
	fmt.Fprint(c.out, a...)
}

func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// Line reads the next command line.
func (c *Console) Line() (string, error) {
	return readLine(c.in)
}

// Ask prompts for one line of text.
func (c *Console) Ask(prompt string) (string, error) {
	return GetSimpleText(c.in, prompt, c.out)
}

// AskDefault prompts for one line, returning current when the answer is
// blank.
func (c *Console) AskDefault(prompt, current string) (string, error) {
	if current != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, current)
	}
	s, err := c.Ask(prompt)
	if err != nil {
		return "", err
	}
	if s == "" {
		return current, nil
	}
	return s, nil
}

// Password reads a secret.
func (c *Console) Password(prompt string) ([]byte, error) {
	if c.fd >= 0 {
		return GetPassword(c.fd, prompt, c.out)
	}
	s, err := GetSimpleText(c.in, prompt, c.out)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Credentials asks for an email and password, plus a display name and a
// password confirmation when registering. A blank email cancels.
func (c *Console) Credentials(ctx context.Context, register bool) (rpc.Credentials, error) {
	var creds rpc.Credentials

	email, err := c.Ask("Email (blank to cancel)")
	if err != nil {
		return creds, err
	}
	if email == "" {
		return creds, identity.ErrCancelled
	}
	creds.Email = email

	if register {
		name, err := c.Ask("Display name")
		if err != nil {
			return creds, err
		}
		creds.DisplayName = name
	}

	password, err := c.Password("Password")
	if err != nil {
		return creds, err
	}
	defer common.WipeByteArray(password)
	if len(password) == 0 {
		return creds, identity.ErrCancelled
	}

	if register {
		confirm, err := c.Password("Repeat password")
		if err != nil {
			return creds, err
		}
		defer common.WipeByteArray(confirm)
		if string(confirm) != string(password) {
			return creds, errPasswordMismatch
		}
	}

	creds.Password = string(password)
	return creds, nil
}
