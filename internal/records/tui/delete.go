package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/records/domain"

	"github.com/charmbracelet/huh"
)

// ErrDeleteAborted is returned when the user cancels the delete form.
var ErrDeleteAborted = errors.New("record deletion aborted")

// DeleteRecordForm lets the user pick one of records and confirm the
// deletion. A preselected record skips the selection step.
func DeleteRecordForm(records []domain.PersistedRecord, preselected *domain.PersistedRecord, accessible bool) (*domain.PersistedRecord, error) {
	selected := preselected
	if selected == nil {
		if len(records) == 0 {
			return nil, fmt.Errorf("no records to delete")
		}

		var id int64
		selectForm := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[int64]().
					Title("Select a record to delete").
					Options(buildRecordOptions(records)...).
					Value(&id),
			),
		).WithAccessible(accessible)
		if err := selectForm.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil, ErrDeleteAborted
			}
			return nil, err
		}
		for i := range records {
			if records[i].ID == id {
				selected = &records[i]
				break
			}
		}
		if selected == nil {
			return nil, fmt.Errorf("record %d: %w", id, domain.ErrNotFound)
		}
	}

	confirmed := false
	confirmForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s?", recordOptionLabel(*selected))).
				Description("The record is removed from the provider and the store.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithAccessible(accessible)
	if err := confirmForm.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, ErrDeleteAborted
		}
		return nil, err
	}
	if !confirmed {
		return nil, ErrDeleteAborted
	}
	return selected, nil
}

func buildRecordOptions(records []domain.PersistedRecord) []huh.Option[int64] {
	options := make([]huh.Option[int64], len(records))
	for i, r := range records {
		options[i] = huh.NewOption(recordOptionLabel(r), r.ID)
	}
	return options
}

// recordOptionLabel renders "#id type name -> value (owner)", skipping
// empty parts.
func recordOptionLabel(r domain.PersistedRecord) string {
	parts := []string{"#" + strconv.FormatInt(r.ID, 10)}
	if r.Type != "" {
		parts = append(parts, string(r.Type))
	}
	if r.Name != "" {
		parts = append(parts, r.Name)
	}
	label := strings.Join(parts, " ")
	if r.Value != "" {
		label += " -> " + r.Value
	}
	if r.Owner != "" {
		label += " (" + r.Owner + ")"
	}
	return label
}
