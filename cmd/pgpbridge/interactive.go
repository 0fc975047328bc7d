package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/pgp-bridge/codec"
	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/resource"
	"github.com/wippyai/pgp-bridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i"},
	Short:   "Call bridge operations from a terminal UI",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

// argKind says how a text field converts into an operation argument.
type argKind int

const (
	argString argKind = iota
	argHandle
	argHandles
	argBool
	argSymbol
	argSymbols
)

func (k argKind) String() string {
	switch k {
	case argHandle:
		return "handle"
	case argHandles:
		return "handle,..."
	case argBool:
		return "bool"
	case argSymbol:
		return "symbol"
	case argSymbols:
		return "symbol,..."
	default:
		return "string|@file"
	}
}

type paramInfo struct {
	name string
	kind argKind
}

var (
	pCtx = paramInfo{"context", argHandle}
	pKey = paramInfo{"key", argHandle}
	pYes = paramInfo{"value", argBool}
)

// signatures describes the arguments of every operation the console offers.
var signatures = map[string][]paramInfo{
	"from_protocol":               {{"protocol", argSymbol}},
	"protocol":                    {pCtx},
	"armor":                       {pCtx},
	"set_armor":                   {pCtx, pYes},
	"text_mode":                   {pCtx},
	"set_text_mode":               {pCtx, pYes},
	"offline":                     {pCtx},
	"set_offline":                 {pCtx, pYes},
	"get_flag":                    {pCtx, {"name", argString}},
	"set_flag":                    {pCtx, {"name", argString}, {"value", argString}},
	"engine_info":                 {pCtx},
	"set_engine_path":             {pCtx, {"path", argString}},
	"set_engine_home_dir":         {pCtx, {"dir", argString}},
	"pinentry_mode":               {pCtx},
	"set_pinentry_mode":           {pCtx, {"mode", argSymbol}},
	"import":                      {pCtx, {"keys", argString}},
	"find_key":                    {pCtx, {"fingerprint", argString}},
	"find_secret_key":             {pCtx, {"fingerprint", argString}},
	"key_info":                    {pKey},
	"delete_key":                  {pCtx, pKey},
	"delete_secret_key":           {pCtx, pKey},
	"encrypt_with_flags":          {pCtx, {"recipients", argHandles}, {"plaintext", argString}, {"flags", argSymbols}},
	"sign_and_encrypt_with_flags": {pCtx, {"recipients", argHandles}, {"plaintext", argString}, {"flags", argSymbols}},
	"decrypt":                     {pCtx, {"ciphertext", argString}},
	"decrypt_with_flags":          {pCtx, {"ciphertext", argString}, {"flags", argSymbols}},
	"sign_with_mode":              {pCtx, {"mode", argSymbol}, {"data", argString}},
	"verify_opaque":               {pCtx, {"signature", argString}, {"data", argString}},
	"release":                     {{"handle", argHandle}},
}

type opInfo struct {
	name   string
	params []paramInfo
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	result   envelope.Result
	ops      []opInfo
	inputs   []textinput.Model
	history  []string
	selected int
	focusIdx int
	state    modelState
}

func newInteractiveModel() *interactiveModel {
	return &interactiveModel{state: stateSelectOp}
}

type loadedMsg struct {
	err error
	rt  *runtime.Runtime
	ops []opInfo
}

type callResultMsg struct {
	err    error
	result envelope.Result
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	s, err := openSession(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	// The console manages its own contexts.
	if _, err := s.call(context.Background(), "release", s.ctx); err != nil {
		_ = s.Close()
		return loadedMsg{err: err}
	}

	var ops []opInfo
	for _, name := range s.rt.Operations() {
		params, ok := signatures[name]
		if !ok {
			continue
		}
		ops = append(ops, opInfo{name: name, params: params})
	}
	return loadedMsg{rt: s.rt, ops: ops}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				m.close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if len(m.ops) == 0 {
					return m, nil
				}
				m.prepareInputs()
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callOperation

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.reset()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.ops = msg.ops

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		if msg.err == nil {
			m.history = append(m.history, fmt.Sprintf("%s -> %s", m.ops[m.selected].name, summary(msg.result)))
		}
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelectOp
	m.result = envelope.Result{}
	m.err = nil
}

func (m *interactiveModel) close() {
	if m.rt != nil {
		_ = m.rt.Close()
	}
}

func (m *interactiveModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Placeholder = p.kind.String()
		ti.Prompt = p.name + ": "
		ti.Width = 60
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callOperation() tea.Msg {
	if m.rt == nil {
		return callResultMsg{err: fmt.Errorf("runtime not loaded")}
	}
	op := m.ops[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := convertArg(input.Value(), op.params[i].kind)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("%s: %w", op.params[i].name, err)}
		}
		args[i] = v
	}
	res, err := m.rt.Call(context.Background(), op.name, args...)
	return callResultMsg{result: res, err: err}
}

// convertArg turns field text into an operation argument. Strings starting
// with @ are read from the named file.
func convertArg(value string, kind argKind) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case argHandle:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, err
		}
		return resource.Handle(n), nil
	case argHandles:
		out := []any{}
		for _, f := range splitList(value) {
			n, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, err
			}
			out = append(out, resource.Handle(n))
		}
		return out, nil
	case argBool:
		return strconv.ParseBool(value)
	case argSymbol:
		return codec.Atom(value), nil
	case argSymbols:
		return symbols(splitList(value)), nil
	default:
		if path, ok := strings.CutPrefix(value, "@"); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return string(data), nil
		}
		return value, nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func summary(res envelope.Result) string {
	s := render(res)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	return s
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.rt == nil {
		return "Opening keyring..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("PGP Bridge"))
	b.WriteString(" ")
	b.WriteString(cfg.HomeDir)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range m.ops {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatOp(op)))
			} else {
				b.WriteString("  " + formatOp(op))
			}
			b.WriteString("\n")
		}
		if len(m.history) > 0 {
			b.WriteString("\nRecent:\n")
			start := max(0, len(m.history)-5)
			for _, h := range m.history[start:] {
				b.WriteString(helpStyle.Render("  " + h))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputArgs:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", opStyle.Render(op.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(op.params[i].kind.String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.name)))
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		case !m.result.IsOK():
			b.WriteString(errorStyle.Render(render(m.result)))
		default:
			b.WriteString(resultStyle.Render(render(m.result)))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatOp(op opInfo) string {
	params := make([]string, len(op.params))
	for i, p := range op.params {
		params[i] = p.name + ": " + typeStyle.Render(p.kind.String())
	}
	return opStyle.Render(op.name) + "(" + strings.Join(params, ", ") + ")"
}
