package main

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

	highScoreStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	midScoreStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	lowScoreStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("202"))
)

// renderScore colors a score by how close it is to identity.
func renderScore(score float64) string {
	text := fmt.Sprintf("%.6f", score)
	switch {
	case math.IsNaN(score):
		return lowScoreStyle.Render(text)
	case score >= 0.95:
		return highScoreStyle.Render(text)
	case score >= 0.75:
		return midScoreStyle.Render(text)
	default:
		return lowScoreStyle.Render(text)
	}
}

func renderField(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// formatPSNR renders a stored PSNR, where -1 marks identical images.
func formatPSNR(psnr float64) string {
	if psnr < 0 {
		return "inf"
	}
	return fmt.Sprintf("%.2f dB", psnr)
}
