package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/sale"
	tea "github.com/charmbracelet/bubbletea"
)

// maxWatchRows caps the number of events kept on screen.
const maxWatchRows = 200

// WatchEventMsg delivers one decoded sale event to the watch view.
type WatchEventMsg struct {
	Block       uint64
	TxHash      string
	ExplorerURL string
	Event       sale.Event
}

// WatchStatusMsg updates the polling status bar.
type WatchStatusMsg struct {
	BlockNum uint64
	Fetching bool
	ErrMsg   string
}

// WatchModel is the Bubble Tea model streaming a sale's events.
type WatchModel struct {
	Contract string
	Chain    string
	Mode     string
	Currency string
	Rows     []WatchEventMsg
	Status   WatchStatusMsg
	Minted   int
	Revenue  string
	cursor   int
	frame    int
	quitting bool
	flash    string

	// swapped in tests
	open func(url string)
	copy func(text string) error
}

// NewWatchModel creates the watch view for a sale contract.
func NewWatchModel(contract, chain, mode, currency string) WatchModel {
	return WatchModel{
		Contract: contract,
		Chain:    chain,
		Mode:     mode,
		Currency: currency,
		open:     openBrowser,
		copy:     copyToClipboard,
	}
}

type watchTickMsg struct{}

func watchSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m WatchModel) Init() tea.Cmd { return watchSpinTick() }

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.flash = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.Rows)-1 {
				m.cursor++
			}
		case "o":
			if row, ok := m.selected(); ok {
				if row.ExplorerURL == "" {
					m.flash = "No explorer URL available"
					break
				}
				m.open(row.ExplorerURL)
				m.flash = "Opening in browser…"
			}
		case "c":
			if row, ok := m.selected(); ok {
				if row.TxHash == "" {
					m.flash = "No hash available"
					break
				}
				if err := m.copy(row.TxHash); err != nil {
					m.flash = "Copy failed"
					break
				}
				m.flash = "Copied: " + TruncateAddr(row.TxHash)
			}
		}

	case watchTickMsg:
		m.frame = (m.frame + 1) % len(spinFrames)
		return m, watchSpinTick()

	case WatchEventMsg:
		// newest first
		m.Rows = append([]WatchEventMsg{msg}, m.Rows...)
		if len(m.Rows) > maxWatchRows {
			m.Rows = m.Rows[:maxWatchRows]
		}
		if _, ok := msg.Event.(sale.BuyEvent); ok {
			m.Minted++
		}

	case WatchStatusMsg:
		m.Status = msg
	}
	return m, nil
}

func (m WatchModel) selected() (WatchEventMsg, bool) {
	if m.cursor < len(m.Rows) {
		return m.Rows[m.cursor], true
	}
	return WatchEventMsg{}, false
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder

	title := fmt.Sprintf("Sale events  ·  %s  ·  %s · %s", TruncateAddr(m.Contract), m.Chain, m.Mode)
	sb.WriteString(StyleTitle.Render(title) + "\n")

	switch {
	case m.Status.ErrMsg != "":
		sb.WriteString(StyleError.Render("✗ "+m.Status.ErrMsg) + "\n\n")
	case m.Status.Fetching:
		sb.WriteString(StyleInfo.Render(fmt.Sprintf("%s polling block #%d…", spinFrames[m.frame], m.Status.BlockNum)) + "\n\n")
	case m.Status.BlockNum > 0:
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  last checked: block #%d", m.Status.BlockNum)) + "\n\n")
	default:
		sb.WriteString(StyleMeta.Render("  connecting…") + "\n\n")
	}

	const (
		wBlk   = 10
		wEvent = 22
		wTx    = 14
	)
	sb.WriteString(padR(StyleDim.Render("BLOCK"), wBlk) + "  " +
		padR(StyleDim.Render("EVENT"), wEvent) + "  " +
		padR(StyleDim.Render("TX"), wTx) + "  " +
		StyleDim.Render("DETAILS") + "\n")
	sep := StyleMeta.Render(strings.Repeat("─", wBlk+wEvent+wTx+50))
	sb.WriteString(sep + "\n")

	if len(m.Rows) == 0 {
		sb.WriteString(StyleMeta.Render("  Waiting for sale events…") + "\n")
	} else {
		for i, row := range m.Rows {
			line := padR(StyleMeta.Render(fmt.Sprintf("#%d", row.Block)), wBlk) + "  " +
				padR(StyleForEvent(row.Event.Name()), wEvent) + "  " +
				padR(StyleAddress.Render(TruncateAddr(row.TxHash)), wTx) + "  " +
				EventSummary(row.Event, m.Currency)
			if i == m.cursor {
				line = StyleSelected.Render(line)
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString(sep + "\n")
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  %d event(s), %d token(s) bought while watching", len(m.Rows), m.Minted)) + "\n")
	}

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleSuccess.Render("  ✓ " + m.flash))
	} else {
		sb.WriteString(watchControls())
	}
	sb.WriteString("\n")
	return sb.String()
}

func watchControls() string {
	gap := StyleMeta.Render("   ")
	return StyleMeta.Render("[ ↑↓ ] navigate") + gap +
		StyleInfo.Render("[ o ]") + StyleMeta.Render(" open in explorer") + gap +
		StyleWarning.Render("[ c ]") + StyleMeta.Render(" copy tx hash") + gap +
		StyleMeta.Render("[ q ] quit")
}
