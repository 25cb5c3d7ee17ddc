package settings

import (
	"errors"
	"fmt"
)

// View selects how the editor lays out source and preview.
type View string

const (
	ViewSplit   View = "split"
	ViewEdit    View = "edit"
	ViewPreview View = "preview"
)

const (
	MinFontSize = 10
	MaxFontSize = 24
)

var (
	// ErrInvalidFontSize indicates a font size outside MinFontSize..MaxFontSize.
	ErrInvalidFontSize = errors.New("settings: font size out of range")
	// ErrInvalidView indicates an unknown default view.
	ErrInvalidView = errors.New("settings: unknown default view")
)

// Settings is the flat preference record.
type Settings struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	FontSize    int    `json:"fontSize"`
	AutoSave    bool   `json:"autoSave"`
	DarkMode    bool   `json:"darkMode"`
	DefaultView View   `json:"defaultView"`
}

// Defaults returns the preferences used before anything has been saved.
func Defaults() Settings {
	return Settings{
		Name:        "Alex Kim",
		Email:       "alex@zenotes.app",
		FontSize:    14,
		AutoSave:    true,
		DarkMode:    false,
		DefaultView: ViewSplit,
	}
}

// Patch lists the preferences Update should overwrite. Nil fields are left alone.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	FontSize    *int    `json:"fontSize,omitempty"`
	AutoSave    *bool   `json:"autoSave,omitempty"`
	DarkMode    *bool   `json:"darkMode,omitempty"`
	DefaultView *View   `json:"defaultView,omitempty"`
}

func (p Patch) validate() error {
	if p.FontSize != nil && (*p.FontSize < MinFontSize || *p.FontSize > MaxFontSize) {
		return fmt.Errorf("%w: %d", ErrInvalidFontSize, *p.FontSize)
	}
	if p.DefaultView != nil && !p.DefaultView.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidView, *p.DefaultView)
	}
	return nil
}

func (p Patch) apply(current Settings) Settings {
	if p.Name != nil {
		current.Name = *p.Name
	}
	if p.Email != nil {
		current.Email = *p.Email
	}
	if p.FontSize != nil {
		current.FontSize = *p.FontSize
	}
	if p.AutoSave != nil {
		current.AutoSave = *p.AutoSave
	}
	if p.DarkMode != nil {
		current.DarkMode = *p.DarkMode
	}
	if p.DefaultView != nil {
		current.DefaultView = *p.DefaultView
	}
	return current
}

func (v View) valid() bool {
	switch v {
	case ViewSplit, ViewEdit, ViewPreview:
		return true
	default:
		return false
	}
}

// ParseView converts s into a View.
func ParseView(s string) (View, error) {
	view := View(s)
	if !view.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
	}
	return view, nil
}
