package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/textfmt"
	"github.com/muesli/reflow/wordwrap"
)

const (
	PlaceHolderText = "Type a command, or /help..."
	rollFrames      = 6
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	api          *apiClient
	lib          *content.Library
	gameState    *state.GameState
	events       <-chan SSEEvent
	logViewport  viewport.Model
	sideViewport viewport.Model
	textarea     textarea.Model
	lines        []string
	lastOutput   []string
	ready        bool
	width        int
	height       int
	loading      bool

	// Quit confirmation state
	showQuitModal bool

	// Dice animation state
	rollFrame int
	rollFace  int
}

type responseMsg struct {
	lines []string
	err   error
}

type gameStateMsg struct {
	gameState *state.GameState
	err       error
}

type sseMsg SSEEvent

type rollTickMsg struct{}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	sidePanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	checkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient, lib *content.Library, gs *state.GameState, events <-chan SSEEvent) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	m := ConsoleUI{
		config:       cfg,
		api:          api,
		lib:          lib,
		gameState:    gs,
		events:       events,
		textarea:     ta,
		logViewport:  logVp,
		sideViewport: viewport.New(30, 20),
	}
	m.lines = append(m.lines,
		titleStyle.Render("DRUID OF PEACE"),
		"Keep the peace between quarrelling strangers without ever being seen.",
		promptStyle.Render("Type /help for commands."),
		"")
	if gs != nil && gs.Encounter != nil {
		m.lines = append(m.lines, formatLog(gs.Encounter.Log)...)
	}
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.events))
}

// waitForEvent delivers the next streamed event. A nil channel blocks
// forever, which is fine when streaming is off.
func waitForEvent(events <-chan SSEEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return sseMsg(ev)
	}
}

func (m *ConsoleUI) layout() {
	logWidth := int(float64(m.width)*0.65) - 4
	sideWidth := m.width - logWidth - 6

	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 5
	m.sideViewport.Width = sideWidth - 2
	m.sideViewport.Height = m.height - 2
	m.textarea.SetWidth(logWidth - 4)
}

// writeLog rewraps every log line for the current viewport width.
func (m *ConsoleUI) writeLog() {
	width := max(m.logViewport.Width-4, 20)
	var b strings.Builder
	for _, line := range m.lines {
		b.WriteString(wordwrap.String(line, width) + "\n")
	}
	if m.loading {
		b.WriteString(m.renderRoll() + "\n")
	}
	m.logViewport.SetContent(b.String())
	m.logViewport.GotoBottom()
}

func (m *ConsoleUI) writeSide() {
	m.sideViewport.SetContent(renderSide(m.gameState, m.lib, m.sideViewport.Width))
}

func (m *ConsoleUI) appendLines(lines ...string) {
	m.lines = append(m.lines, lines...)
	m.lines = append(m.lines, "")
	m.writeLog()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeLog()
		m.writeSide()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			return m.handleInput(input)
		}

	case responseMsg:
		m.loading = false
		m.rollFrame = 0
		if msg.err != nil {
			m.appendLines(errorStyle.Render("Error: " + msg.err.Error()))
			return m, nil
		}
		m.lastOutput = msg.lines
		m.appendLines(msg.lines...)
		return m, m.refreshGameState()

	case gameStateMsg:
		if msg.err != nil {
			m.appendLines(errorStyle.Render("Error: " + msg.err.Error()))
		} else if msg.gameState != nil {
			m.gameState = msg.gameState
			m.writeSide()
		}

	case sseMsg:
		if msg.Type == "game.state_updated" && !m.loading {
			return m, tea.Batch(m.refreshGameState(), waitForEvent(m.events))
		}
		return m, waitForEvent(m.events)

	case rollTickMsg:
		if m.loading {
			m.rollFrame++
			m.rollFace = rand.IntN(20) + 1
			m.writeLog()
			return m, rollTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	m.lines = append(m.lines, userStyle.Render("> "+input))

	c, err := parseCommand(input)
	if err != nil {
		m.appendLines(errorStyle.Render(err.Error()))
		return m, nil
	}

	switch c.name {
	case "/help":
		m.appendLines(titleStyle.Render("Help:"), helpText)
		return m, nil
	case "/quit":
		m.showQuitModal = true
		return m, nil
	case "/copy":
		text := plainText(m.lastOutput)
		if err := clipboard.WriteAll(text); err != nil {
			m.appendLines(errorStyle.Render("Could not copy: " + err.Error()))
		} else {
			m.appendLines(promptStyle.Render("Copied the last response."))
		}
		return m, nil
	}

	m.loading = true
	m.rollFrame = 0
	m.writeLog()
	return m, tea.Batch(m.run(c), rollTick())
}

// run sends a game command to the API and formats the response for the log.
func (m ConsoleUI) run(c command) tea.Cmd {
	api, lib, id := m.api, m.lib, m.gameState.ID
	return func() tea.Msg {
		if a, ok := c.action(); ok {
			res, err := api.act(id, a)
			if err != nil {
				return responseMsg{err: err}
			}
			return responseMsg{lines: formatResult(res, lib)}
		}

		switch c.name {
		case "advance":
			out, err := api.advance(id)
			if err != nil {
				return responseMsg{err: err}
			}
			return responseMsg{lines: formatMapTurn(out.Turn)}
		case "travel":
			out, err := api.travel(id, c.arg)
			if err != nil {
				return responseMsg{err: err}
			}
			zone := zoneName(lib, out.Map.CurrentZone)
			if z := out.Map.Current(); z != nil && z.Description != "" {
				return responseMsg{lines: []string{"You arrive at " + zone + ".", narratorStyle.Render(z.Description)}}
			}
			return responseMsg{lines: []string{"You arrive at " + zone + "."}}
		case "use":
			out, err := api.useMapItem(id, c.arg)
			if err != nil {
				return responseMsg{err: err}
			}
			return responseMsg{lines: []string{fmt.Sprintf("You use %s. %s's heat is now %d.",
				abilityName(lib, c.arg), out.Zone.Name, out.Zone.Heat)}}
		case "start":
			res, err := api.startEncounter(id)
			if err != nil {
				return responseMsg{err: err}
			}
			var lines []string
			if res.Encounter != nil {
				lines = formatLog(res.Encounter.Log)
			}
			if res.Finished != nil {
				lines = append(lines, formatFinished(res.Finished, lib)...)
			}
			return responseMsg{lines: lines}
		case "skills":
			out, err := api.skills(id)
			if err != nil {
				return responseMsg{err: err}
			}
			return responseMsg{lines: formatSkills(out.Points, out.Skills)}
		case "learn", "claim":
			out, err := api.changeSkill(id, c.arg, c.name)
			if err != nil {
				return responseMsg{err: err}
			}
			verb := "learned"
			if c.name == "claim" {
				verb = "claimed"
			}
			return responseMsg{lines: []string{fmt.Sprintf("You %s %s. %d point(s) left.",
				verb, abilityOrSkill(lib, c.arg), out.Points)}}
		case "history":
			out, err := api.history(id)
			if err != nil {
				return responseMsg{err: err}
			}
			return responseMsg{lines: formatHistory(out.Records, out.Stats, lib)}
		}
		return responseMsg{err: errUnknownCommand}
	}
}

func (m ConsoleUI) refreshGameState() tea.Cmd {
	api, id := m.api, m.gameState.ID
	return func() tea.Msg {
		gs, err := api.getGame(id)
		return gameStateMsg{gs, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your game is saved on the server and can be resumed later.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.65) - 4
	sideWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(logWidth-4, 0))),
			m.textarea.View(),
		),
	)

	sidePanel := sidePanelStyle.Width(sideWidth).Height(m.height - 2).Render(
		m.sideViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, sidePanel)
}

// renderRoll draws the tumbling die shown while a command is in flight.
func (m ConsoleUI) renderRoll() string {
	face := m.rollFace
	if face == 0 {
		face = 20
	}
	return loadingStyle.Render(fmt.Sprintf("🎲 %2d ", face)) +
		separatorStyle.Render(textfmt.Bar(m.rollFrame%rollFrames+1, rollFrames, rollFrames))
}

// rollTick creates a command that sends a dice animation tick
func rollTick() tea.Cmd {
	return tea.Tick(time.Millisecond*120, func(time.Time) tea.Msg {
		return rollTickMsg{}
	})
}
