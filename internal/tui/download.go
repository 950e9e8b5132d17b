// Package tui renders a full catalog download in the terminal. The bubbletea
// update loop polls the download task on every tick and never waits on it.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pkdex/pkdex/internal/dex"
	"github.com/pkdex/pkdex/internal/task"
)

// PollInterval 是轮询下载任务的间隔。
const PollInterval = 50 * time.Millisecond

// maxShownErrors 限制界面上同时显示的错误行数。
const maxShownErrors = 5

type pollMsg time.Time

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	doneStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// DownloadModel 是完整下载界面的 bubbletea 模型。
type DownloadModel struct {
	task    *task.Task[*dex.Snapshot, error]
	spinner spinner.Model
	bar     progress.Model

	latest   task.Progress[error]
	message  string
	errors   []string
	result   *dex.Snapshot
	canceled bool
}

// NewDownloadModel 包装一个已启动的下载任务。
func NewDownloadModel(t *task.Task[*dex.Snapshot, error]) DownloadModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	return DownloadModel{
		task:    t,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

func poll() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m DownloadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, poll())
}

func (m DownloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.canceled = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = max(msg.Width-4, 10)
		return m, nil

	case pollMsg:
		result, p := m.task.TryFinish()
		if result != nil {
			m.result = *result
			m.record(m.task.DrainErrors())
			return m, tea.Quit
		}
		m.latest = p
		if p.HasMessage {
			m.message = p.Message
		}
		m.record(p.Errors)
		return m, poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *DownloadModel) record(errs []error) {
	for _, err := range errs {
		m.errors = append(m.errors, err.Error())
	}
}

func (m DownloadModel) View() string {
	var sb strings.Builder
	if m.result != nil {
		sb.WriteString(doneStyle.Render(fmt.Sprintf("Downloaded %d resources in %s", m.result.Loaded(), m.result.Elapsed.Round(time.Millisecond))))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(titleStyle.Render("Downloading catalog"))
		sb.WriteString(fmt.Sprintf(" %d/%d\n", m.latest.Completed, m.latest.Total))
		sb.WriteString(m.bar.ViewAs(m.latest.Fraction()))
		sb.WriteString("\n")
		if m.message != "" {
			sb.WriteString(messageStyle.Render(m.message))
			sb.WriteString("\n")
		}
	}

	shown := m.errors
	if len(shown) > maxShownErrors {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("… %d earlier errors", len(shown)-maxShownErrors)))
		sb.WriteString("\n")
		shown = shown[len(shown)-maxShownErrors:]
	}
	for _, line := range shown {
		sb.WriteString(errorStyle.Render("✗ " + line))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Result 返回下载结果，未完成时为 nil。
func (m DownloadModel) Result() *dex.Snapshot { return m.result }

// Errors 返回界面收集到的全部错误文本。
func (m DownloadModel) Errors() []string { return m.errors }

// Canceled 表示用户在完成前退出。
func (m DownloadModel) Canceled() bool { return m.canceled }

// RunDownload 在终端中运行下载界面直到任务完成或用户退出。
func RunDownload(t *task.Task[*dex.Snapshot, error], in io.Reader, out io.Writer) (DownloadModel, error) {
	program := tea.NewProgram(NewDownloadModel(t), tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return DownloadModel{}, err
	}
	return final.(DownloadModel), nil
}
