package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/analysis/technical"
	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

const maxLogLines = 50

// Стили UI
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")
	mutedColor     = lipgloss.Color("#999999")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ffffff")).
				Background(secondaryColor).
				Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// TermUI представляет терминальный интерфейс
type TermUI struct {
	ctx           context.Context
	signals       map[string]*models.SignalResult
	signalsMutex  sync.RWMutex
	logs          []string
	logsMutex     sync.RWMutex
	config        config.UIConfig
	program       *tea.Program
	selectedIndex int
	width         int
	height        int
	logFile       string
}

// Сообщения для обновления UI
type refreshMsg struct{}

// bubbleModel - модель для bubbletea
type bubbleModel struct {
	ui *TermUI
}

// NewTermUI создает интерфейс и запускает чтение JSON-лога до отмены ctx
func NewTermUI(ctx context.Context, cfg config.UIConfig) *TermUI {
	ui := &TermUI{
		ctx:     ctx,
		signals: make(map[string]*models.SignalResult),
		logs:    []string{"BFSignal запущен. Ожидание данных..."},
		config:  cfg,
		width:   120,
		height:  40,
		logFile: logger.JSONLogFile,
	}

	if err := ui.loadLogsFromFile(); err != nil {
		ui.logs = append(ui.logs, fmt.Sprintf("Ошибка загрузки логов: %v", err))
	}

	refresh := time.Duration(cfg.RefreshRate) * time.Millisecond
	if refresh <= 0 {
		refresh = time.Second
	}

	go func() {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := ui.loadLogsFromFile(); err != nil {
					logger.Warn("Ошибка загрузки логов", zap.Error(err))
				}
				ui.send(refreshMsg{})
			case <-ctx.Done():
				return
			}
		}
	}()

	return ui
}

// Start запускает интерфейс; блокируется до выхода пользователя или отмены контекста
func (ui *TermUI) Start() error {
	ui.program = tea.NewProgram(bubbleModel{ui: ui}, tea.WithAltScreen(), tea.WithContext(ui.ctx))

	if _, err := ui.program.Run(); err != nil && ui.ctx.Err() == nil {
		return fmt.Errorf("ошибка запуска UI: %w", err)
	}
	return nil
}

// UpdateSignals заменяет отображаемые сигналы
func (ui *TermUI) UpdateSignals(signals map[string]*models.SignalResult) {
	ui.signalsMutex.Lock()
	ui.signals = signals
	ui.signalsMutex.Unlock()

	ui.send(refreshMsg{})
}

func (ui *TermUI) send(msg tea.Msg) {
	if ui.program != nil {
		ui.program.Send(msg)
	}
}

// loadLogsFromFile перечитывает последние строки JSON-лога
func (ui *TermUI) loadLogsFromFile() error {
	file, err := os.Open(ui.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var logs []string
	for scanner.Scan() {
		logs = append(logs, formatLogLine(scanner.Text()))
		if len(logs) > maxLogLines {
			logs = logs[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	if len(logs) > 0 {
		ui.logsMutex.Lock()
		ui.logs = logs
		ui.logsMutex.Unlock()
	}

	return nil
}

// formatLogLine превращает JSON-запись zap в строку "[время] [уровень] сообщение (поле: значение)"
func formatLogLine(line string) string {
	var zapLog map[string]interface{}
	if err := json.Unmarshal([]byte(line), &zapLog); err != nil {
		return line
	}

	level, _ := zapLog["level"].(string)
	ts, _ := zapLog["ts"].(string)
	msg, _ := zapLog["msg"].(string)

	level = ansiRegex.ReplaceAllString(level, "")

	timestamp := ""
	if t, err := time.Parse(logger.TimeLayout, ts); err == nil {
		timestamp = t.Format("15:04:05")
	}

	keys := make([]string, 0, len(zapLog))
	for k := range zapLog {
		if k != "level" && k != "ts" && k != "msg" && k != "caller" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", timestamp, level, msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " (%s: %v)", k, zapLog[k])
	}
	return b.String()
}

func renderLogsSection(logs []string, limit int) string {
	header := sectionHeaderStyle.Render("ЛОГИ")
	content := strings.Builder{}

	start := 0
	if len(logs) > limit {
		start = len(logs) - limit
	}

	for _, log := range logs[start:] {
		// Выделение по уровню логирования
		switch {
		case strings.Contains(log, "[ERROR]"):
			log = lipgloss.NewStyle().Foreground(errorColor).Render(log)
		case strings.Contains(log, "[INFO]"):
			log = lipgloss.NewStyle().Foreground(successColor).Render(log)
		case strings.Contains(log, "[WARN]"):
			log = lipgloss.NewStyle().Foreground(warningColor).Render(log)
		case strings.Contains(log, "[DEBUG]"):
			log = lipgloss.NewStyle().Foreground(lipgloss.Color("#9999ff")).Render(log)
		}

		content.WriteString("  " + log + "\n")
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return nil
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up":
			m.ui.selectedIndex = max(0, m.ui.selectedIndex-1)
		case "down":
			m.ui.signalsMutex.RLock()
			count := len(m.ui.signals)
			m.ui.signalsMutex.RUnlock()
			m.ui.selectedIndex = max(0, min(count-1, m.ui.selectedIndex+1))
		case "r":
			if err := m.ui.loadLogsFromFile(); err != nil {
				logger.Warn("Ошибка загрузки логов", zap.Error(err))
			}
		}

	case tea.WindowSizeMsg:
		m.ui.width = msg.Width
		m.ui.height = msg.Height

	case refreshMsg:
	}

	return m, nil
}

func (m bubbleModel) View() string {
	m.ui.signalsMutex.RLock()
	m.ui.logsMutex.RLock()
	defer m.ui.signalsMutex.RUnlock()
	defer m.ui.logsMutex.RUnlock()

	title := titleStyle.Render("BFSignal - технические сигналы Binance Futures")
	signals := renderSignalsSection(m.ui.signals, m.ui.selectedIndex)
	logs := renderLogsSection(m.ui.logs, max(6, m.ui.height-len(m.ui.signals)-16))
	footer := footerStyle.Render("Клавиши: ↑/↓ - навигация, R - перезагрузить логи, Q - выход")

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			signals,
			"\n",
			logs,
			"\n",
			footer,
		),
	)
}

func renderSignalsSection(signals map[string]*models.SignalResult, selectedIndex int) string {
	header := sectionHeaderStyle.Render("СИГНАЛЫ")
	content := strings.Builder{}

	symbols := sortedSymbols(signals)

	if len(symbols) == 0 {
		content.WriteString("  Ожидание данных...\n")
	}

	for i, symbol := range symbols {
		line := formatSignalLine(signals[symbol])

		// Выделяем выбранную строку
		if i == selectedIndex {
			line = lipgloss.NewStyle().Background(lipgloss.Color("#222222")).Render("> " + line)
		} else {
			line = "  " + line
		}

		content.WriteString(line + "\n")
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}

// formatSignalLine строка символа: рекомендация, уверенность, ADX, цена и сработавшие фильтры
func formatSignalLine(signal *models.SignalResult) string {
	adx := "-"
	if signal.Record.ADX != nil {
		adx = fmt.Sprintf("%.1f", *signal.Record.ADX)
	}

	return fmt.Sprintf("%s: %s %s ADX: %s Цена: %.4f %s",
		signal.Symbol,
		formatSignalText(signal.Recommendation),
		confidenceDots(signal.Confidence),
		adx,
		signal.CurrentPrice,
		lipgloss.NewStyle().Foreground(mutedColor).Render(filterFlags(signal.Record)))
}

func formatSignalText(recommendation string) string {
	var style lipgloss.Style

	switch recommendation {
	case models.RecommendationBuy:
		style = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	case models.RecommendationSell:
		style = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	default:
		style = lipgloss.NewStyle().Foreground(warningColor)
	}

	return style.Render(recommendation)
}

// confidenceDots рисует уверенность как ●●○○
func confidenceDots(confidence int) string {
	confidence = max(0, min(confidence, technical.MaxConfidence))
	return strings.Repeat("●", confidence) + strings.Repeat("○", technical.MaxConfidence-confidence)
}

// filterFlags перечисляет выполненные условия бара
func filterFlags(r models.SignalRecord) string {
	var flags []string
	switch {
	case r.BullishTrend:
		flags = append(flags, "тренд↑")
	case r.BearishTrend:
		flags = append(flags, "тренд↓")
	}
	if r.HighVolatility {
		flags = append(flags, "волатильность")
	}
	if r.StrongTrend {
		flags = append(flags, "сильный")
	}
	if r.Chop {
		flags = append(flags, "флэт")
	}
	switch {
	case r.MomentumBuy:
		flags = append(flags, "импульс↑")
	case r.MomentumSell:
		flags = append(flags, "импульс↓")
	}
	return "[" + strings.Join(flags, " ") + "]"
}

func sortedSymbols(signals map[string]*models.SignalResult) []string {
	symbols := make([]string, 0, len(signals))
	for symbol := range signals {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
