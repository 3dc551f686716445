package client

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/discountcodes/discount-server-go/internal/model"
	"github.com/discountcodes/discount-server-go/internal/protocol"
)

// Sender is the request side of Client.
type Sender interface {
	SendGenerate(count uint16, length uint8) error
	SendUseCode(code string) error
}

// Console is the interactive menu. Requests are sent without waiting; responses
// are printed by PrintResponses as they arrive.
type Console struct {
	in     *bufio.Scanner
	sender Sender

	mu  sync.Mutex // guards out
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer, sender Sender) *Console {
	return &Console{
		in:     bufio.NewScanner(in),
		out:    out,
		sender: sender,
	}
}

// Run shows the menu until the user exits or input ends.
func (c *Console) Run() error {
	for {
		c.printf("\n--- Main Menu ---\n1. Generate new codes\n2. Use a code\n3. Exit\nSelect an option: ")

		choice, ok := c.readLine()
		if !ok {
			return c.in.Err()
		}

		var err error
		switch choice {
		case "1":
			err = c.generate()
		case "2":
			err = c.useCode()
		case "3":
			return nil
		default:
			c.printf("Invalid option. Please try again.\n")
		}
		if err != nil {
			return err
		}
	}
}

// PrintResponses prints each response until the channel is closed.
func (c *Console) PrintResponses(responses <-chan protocol.Message) {
	for msg := range responses {
		c.printf("\n--- Server Response ---\n%s\n-----------------------\nSelect an option: ", FormatResponse(msg))
	}
}

// FormatResponse renders a server message for the console.
func FormatResponse(msg protocol.Message) string {
	switch m := msg.(type) {
	case protocol.GenerateResponse:
		if m.Result {
			return "Codes generated successfully."
		}
		return "Code generation failed."
	case protocol.UseCodeResponse:
		return "Code usage result: " + m.Result.String()
	case protocol.ErrorResponse:
		return "Server Error: " + m.Message
	default:
		return "Received unknown message type: " + msg.MessageType().String()
	}
}

func (c *Console) generate() error {
	c.printf("How many codes to generate? (max %d): ", model.MaxGenerateCount)
	line, _ := c.readLine()
	count, err := strconv.ParseUint(line, 10, 16)
	if err != nil || count > model.MaxGenerateCount {
		c.printf("Invalid count.\n")
		return nil
	}

	c.printf("Code length (%d or %d): ", model.MinCodeLength, model.MaxCodeLength)
	line, _ = c.readLine()
	length, err := strconv.ParseUint(line, 10, 8)
	if err != nil || !model.IsValidCodeLength(int(length)) {
		c.printf("Invalid length.\n")
		return nil
	}

	if err := c.sender.SendGenerate(uint16(count), uint8(length)); err != nil {
		return fmt.Errorf("send generate request: %w", err)
	}
	c.printf("Generation request sent. Waiting for response...\n")
	return nil
}

func (c *Console) useCode() error {
	c.printf("Enter code to use: ")
	code, _ := c.readLine()
	if code == "" {
		c.printf("Code cannot be empty.\n")
		return nil
	}

	if err := c.sender.SendUseCode(code); err != nil {
		return fmt.Errorf("send use code request: %w", err)
	}
	c.printf("Use code request sent. Waiting for response...\n")
	return nil
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
