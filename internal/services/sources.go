package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/suspectsources/internal/audit"
	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/logging"
	"github.com/dmitrijs2005/suspectsources/internal/models"
	"github.com/dmitrijs2005/suspectsources/internal/notify"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/repomanager"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/sources"
)

// SourceService implements search, view, create and edit of suspect
// sources. Specialists may do everything; External Authorities may only
// search and view.
type SourceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audit       audit.Recorder
	notifier    notify.Notifier
	log         logging.Logger
	now         func() time.Time
}

func NewSourceService(db *sql.DB, m repomanager.RepositoryManager, rec audit.Recorder,
	n notify.Notifier, log logging.Logger) *SourceService {
	return &SourceService{db: db, repomanager: m, audit: rec, notifier: n, log: log, now: time.Now}
}

func (s *SourceService) sources() sources.Repository {
	return s.repomanager.Sources(s.db)
}

func requireRead(p models.Principal) error {
	if !p.Role.CanReadSources() {
		return fmt.Errorf("%w: %s may not read sources", common.ErrForbidden, p.Role)
	}
	return nil
}

func requireWrite(p models.Principal) error {
	if !p.Role.CanWriteSources() {
		return fmt.Errorf("%w: %s may not modify sources", common.ErrForbidden, p.Role)
	}
	return nil
}

// Search finds sources by one allow-listed field.
func (s *SourceService) Search(ctx context.Context, p models.Principal, field, term string) ([]*models.Source, error) {
	if err := requireRead(p); err != nil {
		return nil, err
	}
	f, ok := models.ParseSourceField(field)
	if !ok {
		return nil, policyErr("field %q is not searchable", field)
	}
	if err := ValidateText("search term", term); err != nil {
		return nil, err
	}

	list, err := s.sources().Search(ctx, f, term)
	if err != nil {
		return nil, storeErr(err)
	}
	return list, nil
}

// View returns one source and audits "View Source".
func (s *SourceService) View(ctx context.Context, p models.Principal, id int64) (*models.Source, error) {
	if err := requireRead(p); err != nil {
		return nil, err
	}
	src, err := s.sources().GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	s.audit.Record(ctx, audit.Operation(models.EventViewSource, p.ID, id, nil))
	return src, nil
}

// NewSource is the input of Create.
type NewSource struct {
	Name        string
	URL         string
	ThreatLevel int
	Description string
}

// CreatedSource reports the stored source and how many authorities were
// told about it.
type CreatedSource struct {
	Source   *models.Source
	Notified int
	Failed   int
}

func validateNewSource(in NewSource) error {
	if err := ValidateText("name", in.Name); err != nil {
		return err
	}
	if err := ValidateURL(in.URL); err != nil {
		return err
	}
	if err := ValidateText("description", in.Description); err != nil {
		return err
	}
	if _, err := sources.ParseThreatLevel(strconv.Itoa(in.ThreatLevel)); err != nil {
		return err
	}
	return nil
}

// Create stores a source, audits "Create Source" and notifies every active
// External Authority. Notification failures are counted, not returned.
func (s *SourceService) Create(ctx context.Context, p models.Principal, in NewSource) (*CreatedSource, error) {
	if err := requireWrite(p); err != nil {
		return nil, err
	}
	in.Name, in.URL, in.Description = strings.TrimSpace(in.Name), strings.TrimSpace(in.URL), strings.TrimSpace(in.Description)
	if err := validateNewSource(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	src, err := s.sources().Create(ctx, &models.Source{
		Name:        in.Name,
		URL:         in.URL,
		ThreatLevel: in.ThreatLevel,
		Description: in.Description,
		CreatedAt:   now,
		ModifiedAt:  now,
	})
	if err != nil {
		return nil, storeErr(err)
	}
	s.audit.Record(ctx, audit.Operation(models.EventCreateSource, p.ID, src.ID, nil))

	res := &CreatedSource{Source: src}
	authorities, err := s.repomanager.Users(s.db).ListByRole(ctx, models.RoleExternalAuthority)
	if err != nil {
		s.log.Warn(ctx, "list authorities failed", "source_id", src.ID, "err", err)
		return res, nil
	}
	for _, a := range authorities {
		if a.Status != models.StatusActive {
			continue
		}
		if err := s.notifier.SendNewSource(ctx, a.Email, src); err != nil {
			res.Failed++
			s.log.Warn(ctx, "source notification failed", "source_id", src.ID, "user_id", a.ID, "err", err)
			continue
		}
		res.Notified++
	}
	return res, nil
}

func (s *SourceService) fieldValue(src *models.Source, f models.SourceField) string {
	switch f {
	case models.SourceFieldName:
		return src.Name
	case models.SourceFieldURL:
		return src.URL
	case models.SourceFieldDescription:
		return src.Description
	case models.SourceFieldThreatLevel:
		return strconv.Itoa(src.ThreatLevel)
	default:
		return ""
	}
}

func validateSourceField(f models.SourceField, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch f {
	case models.SourceFieldURL:
		return value, ValidateURL(value)
	case models.SourceFieldThreatLevel:
		n, err := sources.ParseThreatLevel(value)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	default:
		return value, ValidateText(string(f), value)
	}
}

// Modify edits one allow-listed field and audits "Edit Source" with the old
// and new values.
func (s *SourceService) Modify(ctx context.Context, p models.Principal, id int64, field, value string) error {
	if err := requireWrite(p); err != nil {
		return err
	}
	f, ok := models.ParseSourceField(field)
	if !ok {
		return policyErr("field %q is not editable", field)
	}
	newValue, err := validateSourceField(f, value)
	if err != nil {
		return err
	}

	repo := s.sources()
	src, err := repo.GetByID(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	oldValue := s.fieldValue(src, f)

	if err := repo.UpdateField(ctx, id, f, newValue, s.now()); err != nil {
		return storeErr(err)
	}
	s.audit.Record(ctx, audit.Operation(models.EventEditSource, p.ID, id,
		&models.AttributeChange{Field: string(f), OldValue: oldValue, NewValue: newValue}))
	return nil
}
