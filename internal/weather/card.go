// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Jussi Maki

package weather

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2ECC71")).
			Padding(0, 2)
	cityStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FDF6E3"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FDF6E3"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Card renders the weather as a small bordered card. While a lookup is
// running the labels are hidden.
func Card(w Weather, running bool) string {
	if running {
		return cardStyle.Render(dimStyle.Render("searching..."))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		cityStyle.Render(w.CityName),
		lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(w.TemperatureLabel()),
			"  ",
			labelStyle.Render(w.HumidityLabel()),
			"  ",
			labelStyle.Render(w.Icon)),
	))
}
