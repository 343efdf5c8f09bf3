package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/sources"
	"github.com/dmitrijs2005/suspectsources/internal/services"
)

var sourceFieldLabels = map[models.SourceField]string{
	models.SourceFieldName:        "Name",
	models.SourceFieldURL:         "URL",
	models.SourceFieldDescription: "Description",
	models.SourceFieldThreatLevel: "Threat level",
}

func validateThreatLevel(s string) error {
	_, err := sources.ParseThreatLevel(s)
	return err
}

func (a *App) promptSourceField(title string) (models.SourceField, error) {
	labels := make([]string, len(models.SourceFields))
	for i, f := range models.SourceFields {
		labels[i] = sourceFieldLabels[f]
	}
	n, err := a.promptChoice(title, labels)
	if err != nil {
		return "", err
	}
	return models.SourceFields[n], nil
}

func (a *App) promptSourceValue(f models.SourceField, prompt string) (string, error) {
	switch f {
	case models.SourceFieldThreatLevel:
		return a.promptValid(prompt+fmt.Sprintf(" (%d-%d)", models.MinThreatLevel, models.MaxThreatLevel), validateThreatLevel)
	case models.SourceFieldURL:
		return a.promptValid(prompt, services.ValidateURL)
	default:
		return a.promptValid(prompt, func(s string) error { return services.ValidateText("value", s) })
	}
}

func (a *App) searchSources(ctx context.Context, p models.Principal) error {
	field, err := a.promptSourceField("Search by")
	if err != nil {
		return err
	}
	term, err := a.promptSourceValue(field, "Search for")
	if err != nil {
		return err
	}

	found, err := a.sources.Search(ctx, p, string(field), term)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		a.println("No matching sources.")
		return nil
	}

	a.println(titleStyle.Render(fmt.Sprintf("%d source(s)", len(found))))
	for _, s := range found {
		a.println(fmt.Sprintf("  #%-5d [%d] %s  %s", s.ID, s.ThreatLevel, s.Name, dimStyle.Render(s.URL)))
	}

	choice, err := a.promptValid("Source ID to open (blank to go back)", func(s string) error {
		if s == "" {
			return nil
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return errors.New("enter a source id or leave blank")
		}
		return nil
	})
	if err != nil || choice == "" {
		return err
	}
	id, _ := strconv.ParseInt(choice, 10, 64)
	return a.viewSource(ctx, p, id)
}

func (a *App) viewSource(ctx context.Context, p models.Principal, id int64) error {
	s, err := a.sources.View(ctx, p, id)
	if err != nil {
		return err
	}

	a.println(titleStyle.Render(s.Name))
	a.println(strings.Join([]string{
		"  URL:          " + s.URL,
		"  Threat level: " + strconv.Itoa(s.ThreatLevel),
		"  Description:  " + s.Description,
		"  Created:      " + s.CreatedAt.Local().Format("2006-01-02 15:04"),
		"  Modified:     " + s.ModifiedAt.Local().Format("2006-01-02 15:04"),
	}, "\n"))

	if !p.Role.CanWriteSources() {
		return nil
	}
	edit, err := a.promptYesNo("Edit this source?")
	if err != nil || !edit {
		return err
	}
	return a.editSource(ctx, p, s.ID)
}

func (a *App) editSource(ctx context.Context, p models.Principal, id int64) error {
	field, err := a.promptSourceField("Field to change")
	if err != nil {
		return err
	}
	value, err := a.promptSourceValue(field, "New value")
	if err != nil {
		return err
	}
	if err := a.sources.Modify(ctx, p, id, string(field), value); err != nil {
		return err
	}
	a.printSuccess("Source updated.")
	return nil
}

func (a *App) createSource(ctx context.Context, p models.Principal) error {
	var in services.NewSource
	var err error

	if in.Name, err = a.promptSourceValue(models.SourceFieldName, "Name"); err != nil {
		return err
	}
	if in.URL, err = a.promptSourceValue(models.SourceFieldURL, "URL"); err != nil {
		return err
	}
	level, err := a.promptSourceValue(models.SourceFieldThreatLevel, "Threat level")
	if err != nil {
		return err
	}
	in.ThreatLevel, _ = strconv.Atoi(level)
	if in.Description, err = a.promptSourceValue(models.SourceFieldDescription, "Description"); err != nil {
		return err
	}

	res, err := a.sources.Create(ctx, p, in)
	if err != nil {
		return err
	}
	a.printSuccess(fmt.Sprintf("Source #%d created.", res.Source.ID))
	if res.Failed > 0 {
		a.printWarning(fmt.Sprintf("%d authority notification(s) failed.", res.Failed))
	} else if res.Notified > 0 {
		a.println(fmt.Sprintf("%d authority user(s) notified.", res.Notified))
	}
	return nil
}
