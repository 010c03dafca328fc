package giveaway

import (
	"testing"

	"sgam/internal/requests"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"/giveaway/AbC12/portal-2", "AbC12"},
		{"/giveaway/XyZ90/", "XyZ90"},
		{"giveaway/q1w2e/x", "q1w2e"},
		{"/user/someone", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Giveaway{RelativeURL: tt.url}.Code(), tt.url)
	}
}

func TestExclude(t *testing.T) {
	gs := []Giveaway{
		{Title: "A", RelativeURL: "/giveaway/aaaaa/a"},
		{Title: "B", RelativeURL: "/giveaway/bbbbb/b"},
		{Title: "C", RelativeURL: "/giveaway/ccccc/c"},
	}
	got := Exclude(gs, []string{"/giveaway/bbbbb/b", "/giveaway/zzzzz/z"})

	assert.Equal(t, []Giveaway{gs[0], gs[2]}, got)
	assert.Equal(t, 0, TotalCost(nil))
	assert.Equal(t, 30, TotalCost([]Giveaway{{PointCost: 10}, {PointCost: 20}}))
}

func TestMatcher(t *testing.T) {
	m := NewMatcher(&requests.File{
		ExactMatches: []string{"portal 2", "portal 2 soundtrack"},
		AnyMatches:   []string{"witcher"},
		NoMatches:    []string{"soundtrack"},
	})

	tests := []struct {
		title string
		want  bool
	}{
		{"Portal 2", true},
		{"Portal 2 - Complete Pack", false},
		{"The Witcher 3: Wild Hunt", true},
		{"The Witcher 3 Soundtrack", false},
		{"Portal 2 Soundtrack", false},
		{"Celeste", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(Giveaway{Title: tt.title}), tt.title)
	}
}

func TestMatcher_SelectKeepsOrder(t *testing.T) {
	m := NewMatcher(&requests.File{AnyMatches: []string{"a"}})
	gs := []Giveaway{{Title: "Zap"}, {Title: "Bee"}, {Title: "Cat"}}

	assert.Equal(t, []Giveaway{{Title: "Zap"}, {Title: "Cat"}}, m.Select(gs))
	assert.Nil(t, NewMatcher(&requests.File{}).Select(gs))
}
