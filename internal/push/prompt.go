package push

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// IOPrompter asks on Out and reads the answer from In. Only "y" and "yes" grant.
type IOPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p IOPrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.Out, "%s [y/N] ", question)
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
