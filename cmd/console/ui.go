package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hmcavoy/mutiny-chess/internal/resolver"
	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

const placeholderText = "/new | /join CODE | /move e2 e4 | /persuade e2 e4 <argument> | /resign | /quit"

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config   *ConsoleConfig
	client   *apiClient
	view     *resolver.GameView
	logView  viewport.Model
	input    textinput.Model
	log      []string
	ready    bool
	width    int
	height   int
	loading  bool
}

type apiResultMsg struct {
	lines []string
	view  *resolver.GameView
	err   error
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	pieceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	tauntStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	whiteSquare = lipgloss.NewStyle().
			Background(lipgloss.Color("250")).
			Foreground(lipgloss.Color("0"))

	blackSquare = lipgloss.NewStyle().
			Background(lipgloss.Color("242")).
			Foreground(lipgloss.Color("0"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *apiClient) ConsoleUI {
	ti := textinput.New()
	ti.Placeholder = placeholderText
	ti.Focus()
	ti.Prompt = promptStyle.Render(":: ")
	ti.CharLimit = 500

	vp := viewport.New(60, 16)
	vp.MouseWheelEnabled = true

	return ConsoleUI{
		config:  cfg,
		client:  client,
		input:   ti,
		logView: vp,
		log:     []string{systemStyle.Render("Welcome to Mutiny Chess. Your pieces have opinions.")},
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textinput.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = msg.Width - 24
		m.logView.Height = msg.Height - 5
		m.input.Width = msg.Width - 6
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == "/quit" {
				return m, tea.Quit
			}
			m.loading = true
			return m, m.dispatch(line)
		}

	case apiResultMsg:
		m.loading = false
		if msg.err != nil {
			m.log = append(m.log, errorStyle.Render("! "+msg.err.Error()))
		}
		m.log = append(m.log, msg.lines...)
		if msg.view != nil {
			m.view = msg.view
		}
		m.logView.SetContent(strings.Join(m.log, "\n"))
		m.logView.GotoBottom()
		return m, nil
	}

	var inputCmd, vpCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.logView, vpCmd = m.logView.Update(msg)
	return m, tea.Batch(inputCmd, vpCmd)
}

// dispatch parses one input line into an API call, run off the UI loop.
func (m ConsoleUI) dispatch(line string) tea.Cmd {
	client := m.client
	view := m.view

	return func() tea.Msg {
		fields := strings.Fields(line)
		switch fields[0] {
		case "/new":
			mode := game.ModePvP
			if len(fields) > 1 && fields[1] == "pvai" {
				mode = game.ModePvAI
			}
			created, err := client.createGame(mode)
			if err != nil {
				return apiResultMsg{err: err}
			}
			return apiResultMsg{
				view: created,
				lines: []string{
					systemStyle.Render("Game created. Share code: " + created.Game.ShareCode),
				},
			}

		case "/join":
			if len(fields) < 2 {
				return apiResultMsg{err: fmt.Errorf("usage: /join CODE")}
			}
			joined, err := client.joinByCode(fields[1])
			if err != nil {
				return apiResultMsg{err: err}
			}
			return apiResultMsg{
				view:  joined,
				lines: []string{systemStyle.Render("Joined game as black. The battle begins.")},
			}

		case "/move":
			if view == nil {
				return apiResultMsg{err: fmt.Errorf("no game in progress; /new first")}
			}
			if len(fields) < 3 {
				return apiResultMsg{err: fmt.Errorf("usage: /move FROM TO [message]")}
			}
			piece := pieceOn(view, fields[1])
			if piece == nil {
				return apiResultMsg{err: fmt.Errorf("no piece on %s", fields[1])}
			}
			message := strings.Join(fields[3:], " ")
			result, err := client.command(view.Game.ID, piece.ID, fields[2], message)
			if err != nil {
				return apiResultMsg{err: err}
			}
			lines := renderCommandResult(piece, result)
			refreshed, err := client.getGame(view.Game.ID)
			if err != nil {
				return apiResultMsg{lines: lines, err: err}
			}
			return apiResultMsg{view: refreshed, lines: lines}

		case "/persuade":
			if view == nil {
				return apiResultMsg{err: fmt.Errorf("no game in progress; /new first")}
			}
			if len(fields) < 4 {
				return apiResultMsg{err: fmt.Errorf("usage: /persuade FROM TO argument...")}
			}
			piece := pieceOn(view, fields[1])
			if piece == nil {
				return apiResultMsg{err: fmt.Errorf("no piece on %s", fields[1])}
			}
			result, err := client.persuade(view.Game.ID, piece.ID, fields[2], strings.Join(fields[3:], " "))
			if err != nil {
				return apiResultMsg{err: err}
			}
			lines := []string{
				pieceStyle.Render(pieceLabel(piece)+": ") + result.PieceResponse,
				systemStyle.Render(fmt.Sprintf("(%.0f%% chance; moved: %v)", result.Probability*100, result.MoveExecuted)),
			}
			refreshed, err := client.getGame(view.Game.ID)
			if err != nil {
				return apiResultMsg{lines: lines, err: err}
			}
			return apiResultMsg{view: refreshed, lines: lines}

		case "/resign":
			if view == nil {
				return apiResultMsg{err: fmt.Errorf("no game in progress")}
			}
			g, err := client.resign(view.Game.ID)
			if err != nil {
				return apiResultMsg{err: err}
			}
			refreshed, _ := client.getGame(view.Game.ID)
			return apiResultMsg{
				view:  refreshed,
				lines: []string{systemStyle.Render("You resigned. Result: " + string(g.Result))},
			}

		default:
			return apiResultMsg{err: fmt.Errorf("unknown command %q", fields[0])}
		}
	}
}

func renderCommandResult(piece *game.Piece, result *game.CommandResult) []string {
	lines := []string{pieceStyle.Render(pieceLabel(piece)+": ") + result.ResponseText}
	if !result.Obeyed {
		lines = append(lines, errorStyle.Render("The piece refuses to move. Try /persuade."))
	}
	if result.Analysis != nil {
		lines = append(lines, systemStyle.Render("Analyst: "+result.Analysis.AnalysisText))
	}
	if result.Taunt != "" {
		lines = append(lines, tauntStyle.Render("Enemy King: "+result.Taunt))
	}
	return lines
}

func pieceOn(view *resolver.GameView, square string) *game.Piece {
	for _, p := range view.Pieces {
		if !p.Captured && p.Square == square {
			return p
		}
	}
	return nil
}

func pieceLabel(p *game.Piece) string {
	return fmt.Sprintf("%s %s (morale %d)", p.Color, p.Type, p.Morale)
}

var fenGlyphs = map[rune]string{
	'P': "♙", 'N': "♘", 'B': "♗", 'R': "♖", 'Q': "♕", 'K': "♔",
	'p': "♟", 'n': "♞", 'b': "♝", 'r': "♜", 'q': "♛", 'k': "♚",
}

// renderBoard draws the placement field of a FEN string.
func renderBoard(fen string) string {
	placement := strings.Fields(fen)[0]
	var b strings.Builder

	for rankIdx, rank := range strings.Split(placement, "/") {
		b.WriteString(fmt.Sprintf("%d ", 8-rankIdx))
		fileIdx := 0
		for _, c := range rank {
			if c >= '1' && c <= '8' {
				for i := 0; i < int(c-'0'); i++ {
					b.WriteString(squareStyle(rankIdx, fileIdx).Render("  "))
					fileIdx++
				}
				continue
			}
			glyph, ok := fenGlyphs[c]
			if !ok {
				glyph = "?"
			}
			b.WriteString(squareStyle(rankIdx, fileIdx).Render(glyph + " "))
			fileIdx++
		}
		b.WriteString("\n")
	}
	b.WriteString("  a b c d e f g h")
	return b.String()
}

func squareStyle(rankIdx, fileIdx int) lipgloss.Style {
	if (rankIdx+fileIdx)%2 == 0 {
		return whiteSquare
	}
	return blackSquare
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Loading..."
	}

	var side strings.Builder
	side.WriteString(titleStyle.Render("Mutiny Chess") + "\n\n")
	if m.view != nil {
		side.WriteString(renderBoard(m.view.Game.FEN) + "\n\n")
		side.WriteString(playerStyle.Render("Turn: "+string(m.view.Game.Turn)) + "\n")
		side.WriteString("Status: " + string(m.view.Game.Status) + "\n")
		if m.view.Game.ShareCode != "" {
			side.WriteString("Code: " + m.view.Game.ShareCode + "\n")
		}
		if m.view.Game.Result != "" {
			side.WriteString("Result: " + string(m.view.Game.Result) + "\n")
		}
	} else {
		side.WriteString(promptStyle.Render("No game yet.\n/new to start,\n/join CODE to join."))
	}
	if m.loading {
		side.WriteString("\n" + tauntStyle.Render("thinking..."))
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().PaddingRight(3).Render(side.String()),
		m.logView.View())

	return main + "\n\n" + m.input.View()
}
