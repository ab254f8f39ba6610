package service

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const leaderboardSheet = "Leaderboard"

var leaderboardHeader = []any{"Rank", "Username", "Circle points", "Challenges completed"}

// WriteLeaderboardXLSX renders the export as a single-sheet workbook.
func WriteLeaderboardXLSX(w io.Writer, export *LeaderboardExport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(leaderboardSheet, "A1", &leaderboardHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(leaderboardSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, e := range export.Entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{e.Rank, e.Username, e.CirclePoints, e.ChallengesCompleted}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(leaderboardSheet, "B", "B", 24); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
