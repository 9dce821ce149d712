package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/meditrack/internal/models"
	"github.com/dmitrijs2005/meditrack/internal/services"
)

func formatMedication(m models.Medication) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s, %s, %s", m.ID, m.Name, m.Dose, m.Frequency)
	if m.StartTime != "" {
		fmt.Fprintf(&b, ", from %s", m.StartTime)
	}
	if m.Notes != "" {
		fmt.Fprintf(&b, " (%s)", m.Notes)
	}
	return b.String()
}

func (a *App) List(ctx context.Context) error {
	list, err := a.meds.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No medications yet")
		return nil
	}
	for _, m := range list {
		fmt.Fprintln(a.out, formatMedication(m))
	}
	return nil
}

// promptMedication asks for every editable field, offering cur as defaults.
func (a *App) promptMedication(cur models.Medication) (services.MedicationInput, error) {
	var in services.MedicationInput
	fields := []struct {
		prompt string
		cur    string
		dst    *string
	}{
		{"Name", cur.Name, &in.Name},
		{"Dose", cur.Dose, &in.Dose},
		{"Frequency", cur.Frequency, &in.Frequency},
		{"Start time (HH:MM, optional)", cur.StartTime, &in.StartTime},
		{"Notes (optional)", cur.Notes, &in.Notes},
	}
	for _, f := range fields {
		v, err := getOptionalText(a.reader, f.prompt, f.cur, a.out)
		if err != nil {
			return in, err
		}
		*f.dst = v
	}
	return in, nil
}

func (a *App) Add(ctx context.Context) error {
	in, err := a.promptMedication(models.Medication{})
	if err != nil {
		return err
	}
	m, err := a.meds.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s\n", formatMedication(m))
	return nil
}

func (a *App) promptID() (int64, error) {
	s, err := getSimpleText(a.reader, "Enter medication id", a.out)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// Edit offers the current values of a visible medication as defaults. An
// id outside the visible list can still be edited, with every field typed
// in again.
func (a *App) Edit(ctx context.Context) error {
	id, err := a.promptID()
	if err != nil {
		return err
	}

	var cur models.Medication
	list, err := a.meds.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range list {
		if m.ID == id {
			cur = m
			break
		}
	}

	in, err := a.promptMedication(cur)
	if err != nil {
		return err
	}
	if err := a.meds.Edit(ctx, id, in); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated #%d\n", id)
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	id, err := a.promptID()
	if err != nil {
		return err
	}
	if err := a.meds.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted #%d\n", id)
	return nil
}
