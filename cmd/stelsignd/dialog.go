package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stelsign/stelsignd/signing"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Reverse(true)
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// consoleDialog renders confirmation prompts to the terminal and blocks for
// the holder's decision on stdin. It stands in for the device's physical
// display and buttons.
type consoleDialog struct {
	in *bufio.Reader
}

func (d *consoleDialog) Confirm(p *signing.Prompt) bool {
	fmt.Println(headerStyle.Render(p.Header()))
	if p.Title != "" {
		fmt.Println(p.Title)
	}
	for _, line := range p.Lines {
		fmt.Println(line)
	}
	if w := p.Warning(); w != "" {
		fmt.Println(warningStyle.Render(w))
	}
	fmt.Print("Confirm? [y/N] ")
	line, err := d.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
