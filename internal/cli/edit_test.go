package cli

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pagecomposer/pkg/properties"
	"github.com/matzehuels/pagecomposer/pkg/store"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key to the editor and runs the resulting operation, if
// any, to completion.
func press(t *testing.T, m EditorModel, k string) EditorModel {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(EditorModel)
	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(EditorModel)
	}
	return m
}

func startEditor(t *testing.T, remote bool) (EditorModel, *editSession, *store.Repository) {
	t.Helper()
	c, repo, _ := newTestCLI(t)
	ctx := context.Background()
	api, err := c.newAPI(ctx, "", true)
	require.NoError(t, err)
	page, err := api.FindPage(ctx, "home")
	require.NoError(t, err)

	var sess *editSession
	if remote {
		sess, err = c.startRemote(ctx, api, page)
	} else {
		sess, err = c.startLocal(ctx, api, page)
	}
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	require.Eventually(t, func() bool { return len(sess.shell.Components()) == 7 }, 5*time.Second, 10*time.Millisecond)
	return newEditorModel(sess.ctx, sess, page), sess, repo
}

func TestEditorMoveAndEdit(t *testing.T) {
	for _, remote := range []bool{false, true} {
		name := "local"
		if remote {
			name = "remote"
		}
		t.Run(name, func(t *testing.T) {
			m, sess, repo := startEditor(t, remote)
			sh := sess.shell

			m = press(t, m, "j")
			m = press(t, m, "j")
			c, ok := m.current()
			require.True(t, ok)
			require.Equal(t, "banner", c.ID)

			m = press(t, m, "J")
			assert.Empty(t, m.err)
			require.Eventually(t, func() bool {
				main, ok := sh.Component("main")
				return ok && len(main.Children) == 2 && main.Children[1] == "banner" && !sh.Reloading()
			}, 5*time.Second, 10*time.Millisecond)

			m.refresh()
			c, _ = m.current()
			assert.Equal(t, "banner", c.ID, "cursor follows the moved item")

			m = press(t, m, "enter")
			assert.Equal(t, "banner", sh.Selected())
			require.Equal(t, properties.StateReady, sh.Panel().View().State)

			m = press(t, m, "p")
			require.Equal(t, modePanel, m.mode)
			m = press(t, m, "enter")
			require.Equal(t, modeEditField, m.mode)
			assert.Equal(t, "Welcome", m.input)
			for range len("Welcome") {
				m = press(t, m, "backspace")
			}
			m = press(t, m, "Hello")
			m = press(t, m, "enter")
			assert.Equal(t, modePanel, m.mode)
			assert.Equal(t, "Hello", sh.Panel().View().Fields[0].Value)

			m = press(t, m, "s")
			assert.Empty(t, m.err)
			assert.Equal(t, "Saved", m.status)

			props, err := repo.Parameters(context.Background(), "banner")
			require.NoError(t, err)
			require.NotEmpty(t, props)
			assert.Equal(t, "Hello", props[0].Value)
		})
	}
}

func TestEditorAddAndRemove(t *testing.T) {
	m, sess, _ := startEditor(t, false)
	sh := sess.shell

	// sidebar container
	for m.rows[m.cursor].ID != "sidebar" {
		m = press(t, m, "j")
	}
	m = press(t, m, "a")
	require.Equal(t, modeToolkit, m.mode)
	m = press(t, m, "j")
	m = press(t, m, "enter")
	assert.Empty(t, m.err)
	require.Eventually(t, func() bool {
		sidebar, ok := sh.Component("sidebar")
		return ok && len(sidebar.Children) == 2 && !sh.Reloading()
	}, 5*time.Second, 10*time.Millisecond)

	m.refresh()
	for m.rows[m.cursor].ID != "links" {
		m = press(t, m, "j")
	}
	m = press(t, m, "d")
	require.Equal(t, modeConfirmRemove, m.mode)
	m = press(t, m, "n")
	assert.Equal(t, modeTree, m.mode)
	_, ok := sh.Component("links")
	assert.True(t, ok, "declined removal keeps the item")

	m = press(t, m, "d")
	m = press(t, m, "y")
	assert.Empty(t, m.err)
	_, ok = sh.Component("links")
	assert.False(t, ok)
	assert.Contains(t, m.View(), "Removed Links")
}

func TestEditorMoveAcrossContainers(t *testing.T) {
	m, sess, _ := startEditor(t, false)
	sh := sess.shell

	for m.rows[m.cursor].ID != "news" {
		m = press(t, m, "j")
	}
	m = press(t, m, "m")
	assert.Empty(t, m.err)
	require.Eventually(t, func() bool {
		news, ok := sh.Component("news")
		return ok && news.ParentID == "sidebar" && !sh.Reloading()
	}, 5*time.Second, 10*time.Millisecond)

	sidebar, _ := sh.Component("sidebar")
	assert.Equal(t, []string{"links", "news"}, sidebar.Children)
}

func TestEditorView(t *testing.T) {
	m, _, _ := startEditor(t, false)
	out := m.View()
	assert.Contains(t, out, "Page home")
	assert.Contains(t, out, "Banner")
	assert.Contains(t, out, "HST.vBox")

	next, cmd := m.Update(key("q"))
	assert.NotNil(t, cmd)
	_ = next
}
