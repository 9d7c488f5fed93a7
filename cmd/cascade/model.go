package main

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/daviddao/cascadance/internal/raster"
	"github.com/daviddao/cascadance/internal/snapshot"
	"github.com/daviddao/cascadance/internal/store"
	"github.com/daviddao/cascadance/internal/tags"
	"github.com/daviddao/cascadance/internal/timeline"
)

// One terminal cell is cellWidth x cellHeight editor pixels. The raster
// draws two device pixels per cell, one above the other.
const (
	cellWidth        = 4
	cellHeight       = 8
	devicePixelRatio = 0.25

	canvasTop     = 2 // title + toolbar
	chromeRows    = 3 // title + toolbar + status
	helpRows      = 4
	frameInterval = 50 * time.Millisecond
)

// --- Messages ---

type tagsChangedMsg struct{}

type tagsLoadedMsg struct {
	reg *tags.Registry
	err error
}

type tagsSavedMsg struct{ err error }

type progressMsg float64

type analysisDoneMsg struct {
	analysis timeline.Analysis
	err      error
}

type savedMsg struct {
	snap *snapshot.DataSnapshot
	at   time.Time
	err  error
}

type snapshotReadyMsg struct {
	snap *snapshot.DataSnapshot
	err  error
}

type frameMsg time.Time

// --- Key bindings ---

type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Play      key.Binding
	Rewind    key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	Left      key.Binding
	Right     key.Binding
	ColorMode key.Binding
	Esc       key.Binding
	Rename    key.Binding
	Delete    key.Binding
	Move      key.Binding
	Enter     key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Play:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Rewind:    key.NewBinding(key.WithKeys("home", "0"), key.WithHelp("0", "rewind")),
	ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "scroll left")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "scroll right")),
	ColorMode: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "colour mode")),
	Esc:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Rename:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
	Delete:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
	Move:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.ZoomIn, k.ZoomOut, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Rewind, k.ZoomIn, k.ZoomOut},
		{k.Left, k.Right, k.ColorMode, k.Esc},
		{k.Rename, k.Delete, k.Move, k.Enter},
		{k.Help, k.Quit},
	}
}

// --- Model ---

type promptKind int

const (
	promptNone promptKind = iota
	promptNew
	promptRename
)

// editorState is written by editor callbacks, which only run inside Update.
type editorState struct {
	position float64
	selected bool
	edit     int
	changed  bool
}

type uiModel struct {
	store    *store.Store
	track    string
	tagsPath string
	fileSize int64

	editor   *timeline.Editor
	canvas   *raster.Canvas
	segments *timeline.SliceStore
	tags     *tags.Registry
	tagSaves int // tag file writes in flight
	state    *editorState
	colors   timeline.ColorParams
	mode     timeline.ColorMode
	analysis timeline.Analysis
	snap     *snapshot.DataSnapshot

	width      int
	height     int
	canvasRows int

	analyzing bool
	playing   bool
	lastFrame time.Time

	prompt    textinput.Model
	promptFor promptKind
	renaming  int
	editing   int // segment index with the edit menu open, or -1

	help     help.Model
	showHelp bool

	status   string
	lastSave time.Time
}

func newModel(s *store.Store, track, tagsPath string, reg *tags.Registry, segs []timeline.Segment, opts timeline.Options) uiModel {
	st := &editorState{edit: -1}
	opts.OnSeek = func(t float64) { st.position = t }
	opts.OnSelect = func(start, end float64) { st.selected = true }
	opts.OnEdit = func(i int) { st.edit = i }
	opts.OnChange = func() { st.changed = true }

	segments := &timeline.SliceStore{Segments: segs}

	ti := textinput.New()
	ti.Prompt = "tag: "
	ti.Placeholder = "name"
	ti.CharLimit = 40
	ti.ShowSuggestions = true
	ti.SetSuggestions(reg.Names())

	return uiModel{
		store:    s,
		track:    track,
		tagsPath: tagsPath,
		editor:   timeline.New(segments, reg, opts),
		canvas:   raster.New(0, 0),
		segments: segments,
		tags:     reg,
		state:    st,
		colors:   opts.Colors,
		mode:     opts.ColorMode,
		prompt:   ti,
		editing:  -1,
		help:     help.New(),
	}
}

func (m uiModel) Init() tea.Cmd {
	return nil
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()

	case progressMsg:
		m.editor.SetProgress(float64(msg))

	case analysisDoneMsg:
		m.analyzing = false
		if msg.err != nil {
			m.status = "analysis failed: " + msg.err.Error()
			m.editor.Load(timeline.Analysis{})
			return m, nil
		}
		if err := m.editor.Load(msg.analysis); err != nil {
			m.status = "analysis failed: " + err.Error()
			return m, nil
		}
		m.analysis = msg.analysis
		return m, m.refreshSnapshot()

	case frameMsg:
		if !m.playing {
			return m, nil
		}
		now := time.Time(msg)
		m.state.position += now.Sub(m.lastFrame).Seconds()
		m.lastFrame = now
		if d := m.editor.Viewport().Duration; m.state.position >= d {
			m.state.position = d
			m.playing = false
			return m, nil
		}
		return m, frame()

	case tagsChangedMsg:
		if m.tagsBusy() {
			return m, nil
		}
		return m, m.reloadTags()

	case tagsLoadedMsg:
		// The file is older than the registry while a fade is being
		// edited or saved.
		if m.tagsBusy() {
			return m, nil
		}
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.tags = msg.reg
		m.editor.SetTags(msg.reg)
		m.prompt.SetSuggestions(msg.reg.Names())

	case tagsSavedMsg:
		m.tagSaves = max(0, m.tagSaves-1)
		if msg.err != nil {
			m.status = msg.err.Error()
		}

	case savedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
			return m, nil
		}
		m.lastSave = msg.at
		if msg.snap != nil {
			m.snap = msg.snap
		}

	case snapshotReadyMsg:
		if msg.err == nil && msg.snap != nil {
			m.snap = msg.snap
		}
	}

	return m, nil
}

// layout sizes the editor to the space between the toolbar and the
// status bar.
func (m *uiModel) layout() {
	rows := m.height - chromeRows
	if m.showHelp {
		rows -= helpRows
	}
	m.canvasRows = max(rows, 0)
	m.editor.Resize(float64(m.width*cellWidth), float64(m.canvasRows*cellHeight), devicePixelRatio)
}

func (m uiModel) prompting() bool { return m.promptFor != promptNone }

func (m uiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompting() {
		return m.handlePromptKey(msg)
	}
	if m.editing >= 0 {
		return m.handleMenuKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()

	case key.Matches(msg, keys.Esc):
		m.editor.Key("esc")

	case key.Matches(msg, keys.Play):
		if m.analyzing || !m.editor.Loaded() {
			return m, nil
		}
		m.playing = !m.playing
		if m.playing {
			if m.state.position >= m.editor.Viewport().Duration {
				m.state.position = 0
			}
			m.lastFrame = time.Now()
			return m, frame()
		}

	case key.Matches(msg, keys.Rewind):
		m.state.position = 0

	case key.Matches(msg, keys.ZoomIn):
		m.editor.Zoom(1)

	case key.Matches(msg, keys.ZoomOut):
		m.editor.Zoom(-1)

	case key.Matches(msg, keys.Left):
		m.editor.ScrollBy(-m.editor.Viewport().Width / 10)

	case key.Matches(msg, keys.Right):
		m.editor.ScrollBy(m.editor.Viewport().Width / 10)

	case key.Matches(msg, keys.ColorMode):
		if m.mode == timeline.ColorHue {
			m.mode = timeline.ColorMix
		} else {
			m.mode = timeline.ColorHue
		}
		m.editor.SetColors(m.mode, m.colors)
	}
	return m, nil
}

func (m uiModel) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		value := m.prompt.Value()
		switch m.promptFor {
		case promptNew:
			m.editor.CommitSelection(value)
		case promptRename:
			m.editor.Rename(m.renaming, value)
		}
		m.closePrompt()
		return m.drain(false)

	case key.Matches(msg, keys.Esc):
		if m.promptFor == promptNew {
			m.editor.CancelSelection()
		}
		m.closePrompt()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *uiModel) openPrompt(kind promptKind, value string) tea.Cmd {
	m.promptFor = kind
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	return m.prompt.Focus()
}

func (m *uiModel) closePrompt() {
	m.promptFor = promptNone
	m.prompt.Blur()
	m.prompt.Reset()
}

func (m uiModel) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	i := m.editing
	m.editing = -1

	switch {
	case key.Matches(msg, keys.Rename):
		seg := m.segments.At(i)
		if seg == nil {
			return m, nil
		}
		m.renaming = i
		return m, m.openPrompt(promptRename, seg.Tag)

	case key.Matches(msg, keys.Delete):
		m.editor.Delete(i)
		return m.drain(false)

	case key.Matches(msg, keys.Move):
		m.editor.BeginMove(i)

	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func pointerButton(b tea.MouseButton) timeline.Button {
	switch b {
	case tea.MouseButtonLeft:
		return timeline.ButtonPrimary
	case tea.MouseButtonMiddle:
		return timeline.ButtonMiddle
	case tea.MouseButtonRight:
		return timeline.ButtonSecondary
	}
	return timeline.ButtonNone
}

// pointer converts a terminal cell to editor coordinates at the cell centre.
func pointer(msg tea.MouseMsg) timeline.PointerEvent {
	row := msg.Y - canvasTop
	return timeline.PointerEvent{
		X:      float64(msg.X*cellWidth + cellWidth/2),
		Y:      float64(row*cellHeight + cellHeight/2),
		Button: pointerButton(msg.Button),
		Shift:  msg.Shift,
		Alt:    msg.Alt,
		Ctrl:   msg.Ctrl,
	}
}

func (m uiModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.prompting() {
		return m, nil
	}
	ev := pointer(msg)
	row := msg.Y - canvasTop
	inside := row >= 0 && row < m.canvasRows
	_, moving := m.editor.Mode().(*timeline.Moving)

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if inside {
				m.editor.Wheel(ev.X, 1)
			}
			return m, nil
		case tea.MouseButtonWheelDown:
			if inside {
				m.editor.Wheel(ev.X, -1)
			}
			return m, nil
		case tea.MouseButtonWheelLeft:
			m.editor.ScrollBy(-cellWidth * 4)
			return m, nil
		case tea.MouseButtonWheelRight:
			m.editor.ScrollBy(cellWidth * 4)
			return m, nil
		}
		if m.editing >= 0 {
			m.editing = -1
			return m, nil
		}
		if !inside && !moving {
			return m, nil
		}
		m.editor.PointerDown(ev)
		return m.drain(false)

	case tea.MouseActionMotion:
		if !inside {
			if _, idle := m.editor.Mode().(timeline.Idle); idle {
				m.editor.ClearHover()
				return m, nil
			}
		}
		m.editor.PointerMove(ev)
		return m, nil

	case tea.MouseActionRelease:
		_, fade := m.editor.Mode().(timeline.FadeDragging)
		m.editor.PointerUp(ev)
		return m.drain(fade)
	}
	return m, nil
}

// drain acts on the editor callbacks fired by the last input.
func (m uiModel) drain(fadeChanged bool) (uiModel, tea.Cmd) {
	st := m.state
	var cmds []tea.Cmd
	if st.selected {
		st.selected = false
		cmds = append(cmds, m.openPrompt(promptNew, ""))
	}
	if st.edit >= 0 {
		m.editing = st.edit
		st.edit = -1
	}
	if st.changed {
		st.changed = false
		cmds = append(cmds, m.save())
		if fadeChanged {
			if cmd := m.saveTags(); cmd != nil {
				m.tagSaves++
				cmds = append(cmds, cmd)
			}
		}
	}
	return m, tea.Batch(cmds...)
}

// save writes the segments of the current track and rebuilds the snapshot.
func (m uiModel) save() tea.Cmd {
	if m.store == nil {
		return nil
	}
	s, track, a := m.store, m.track, m.analysis
	segs := timeline.Segments(m.segments)
	reg := m.tags.Clone()
	return func() tea.Msg {
		if err := s.SaveSegments(track, segs); err != nil {
			return savedMsg{err: err}
		}
		snap, err := snapshot.Build(s, track, reg, a)
		return savedMsg{snap: snap, at: time.Now(), err: err}
	}
}

// tagsBusy reports whether the in-memory tag registry holds fades not yet
// written to the tag file.
func (m uiModel) tagsBusy() bool {
	if _, ok := m.editor.Mode().(timeline.FadeDragging); ok {
		return true
	}
	return m.tagSaves > 0
}

func (m uiModel) saveTags() tea.Cmd {
	if m.tagsPath == "" {
		return nil
	}
	reg, path := m.tags.Clone(), m.tagsPath
	return func() tea.Msg {
		return tagsSavedMsg{err: reg.Save(path)}
	}
}

func (m uiModel) reloadTags() tea.Cmd {
	if m.tagsPath == "" {
		return nil
	}
	path := m.tagsPath
	return func() tea.Msg {
		reg, err := tags.Load(path)
		return tagsLoadedMsg{reg: reg, err: err}
	}
}

func (m uiModel) refreshSnapshot() tea.Cmd {
	if m.store == nil {
		return nil
	}
	s, track, a := m.store, m.track, m.analysis
	reg := m.tags.Clone()
	return func() tea.Msg {
		snap, err := snapshot.Build(s, track, reg, a)
		return snapshotReadyMsg{snap: snap, err: err}
	}
}
