package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sillsdev/liftmerge/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const batchSize = 100

type LexiconRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRepositoryUnavailable, err)
	}
	return db, nil
}

func NewLexiconRepository(db *gorm.DB) *LexiconRepository {
	return &LexiconRepository{db: db}
}

// LoadLexicon rebuilds the whole lexicon from the stored snapshot.
func (r *LexiconRepository) LoadLexicon(ctx context.Context) (*domain.Lexicon, error) {
	lex := domain.NewLexicon()
	db := r.db.WithContext(ctx)

	lists := make([]PossibilityListModel, 0)
	if err := db.Order("position").Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}
	for _, m := range lists {
		lex.AddList(&domain.PossibilityList{GUID: m.GUID, Name: m.Name, Label: multiFromJSON(m.Label)})
	}

	items := make([]PossibilityModel, 0)
	if err := db.Order("position").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load possibilities: %w", err)
	}
	for _, m := range items {
		lex.AddItem(&domain.Possibility{
			GUID:        m.GUID,
			List:        m.ListGUID,
			Parent:      m.ParentGUID,
			LiftID:      m.LiftID,
			Label:       multiFromJSON(m.Label),
			Abbrev:      multiFromJSON(m.Abbrev),
			Description: multiFromJSON(m.Description),
		})
	}

	types := make([]ReferenceTypeModel, 0)
	if err := db.Order("position").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("load reference types: %w", err)
	}
	for _, m := range types {
		kind, _ := domain.ParseMappingKind(m.Kind)
		lex.AddReferenceType(&domain.ReferenceType{
			GUID:                m.GUID,
			LiftID:              m.LiftID,
			Kind:                kind,
			Name:                multiFromJSON(m.Name),
			Abbreviation:        multiFromJSON(m.Abbreviation),
			ReverseName:         multiFromJSON(m.ReverseName),
			ReverseAbbreviation: multiFromJSON(m.ReverseAbbreviation),
			Description:         multiFromJSON(m.Description),
		})
	}

	entries := make([]EntryModel, 0)
	if err := db.Order("position").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	for _, m := range entries {
		var e domain.Entry
		if err := json.Unmarshal(m.Body, &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", m.GUID, err)
		}
		lex.AddEntry(&e)
	}

	links := make([]LinkModel, 0)
	if err := db.Order("position").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	members := make([]LinkMemberModel, 0)
	if err := db.Order("link_guid, position").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load link members: %w", err)
	}
	targets := map[uuid.UUID][]uuid.UUID{}
	for _, m := range members {
		targets[m.LinkGUID] = append(targets[m.LinkGUID], m.MemberGUID)
	}
	for _, m := range links {
		lex.AddLink(&domain.LinkObject{GUID: m.GUID, Type: m.TypeGUID, Targets: targets[m.GUID]})
	}

	defs := make([]FieldDefModel, 0)
	if err := db.Order("id").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("load field defs: %w", err)
	}
	for _, m := range defs {
		lex.AddFieldDef(fieldDefFromModel(m))
	}

	values := make([]FieldValueModel, 0)
	if err := db.Order("id").Find(&values).Error; err != nil {
		return nil, fmt.Errorf("load field values: %w", err)
	}
	for _, m := range values {
		var v domain.FieldValue
		if err := json.Unmarshal(m.Value, &v); err != nil {
			return nil, fmt.Errorf("decode field %s on %s: %w", m.FieldName, m.ObjectGUID, err)
		}
		lex.SetFieldValue(m.ObjectGUID, m.FieldName, v)
	}

	return lex, nil
}

// SaveLexicon replaces the stored snapshot with lex in one transaction.
func (r *LexiconRepository) SaveLexicon(ctx context.Context, lex *domain.Lexicon) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"entries", "senses", "reference_types", "link_objects", "link_members", "field_defs", "field_values", "possibility_lists", "possibilities"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		lists := make([]PossibilityListModel, 0)
		items := make([]PossibilityModel, 0)
		for i, list := range lex.Lists() {
			lists = append(lists, PossibilityListModel{GUID: list.GUID, Name: list.Name, Label: toJSON(list.Label), Position: i})
			for _, p := range lex.Items(list.GUID) {
				items = append(items, PossibilityModel{
					GUID:        p.GUID,
					ListGUID:    p.List,
					ParentGUID:  p.Parent,
					LiftID:      p.LiftID,
					Label:       toJSON(p.Label),
					Abbrev:      toJSON(p.Abbrev),
					Description: toJSON(p.Description),
					Position:    len(items),
				})
			}
		}
		if err := createAll(tx, lists); err != nil {
			return fmt.Errorf("save lists: %w", err)
		}
		if err := createAll(tx, items); err != nil {
			return fmt.Errorf("save possibilities: %w", err)
		}

		types := make([]ReferenceTypeModel, 0)
		for i, t := range lex.ReferenceTypes() {
			types = append(types, ReferenceTypeModel{
				GUID:                t.GUID,
				LiftID:              t.LiftID,
				Label:               t.Label(),
				Kind:                t.Kind.String(),
				Name:                toJSON(t.Name),
				Abbreviation:        toJSON(t.Abbreviation),
				ReverseName:         toJSON(t.ReverseName),
				ReverseAbbreviation: toJSON(t.ReverseAbbreviation),
				Description:         toJSON(t.Description),
				Position:            i,
			})
		}
		if err := createAll(tx, types); err != nil {
			return fmt.Errorf("save reference types: %w", err)
		}

		entries := make([]EntryModel, 0, lex.EntryCount())
		senses := make([]SenseModel, 0)
		for i, e := range lex.Entries() {
			body, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode entry %s: %w", e.GUID, err)
			}
			entries = append(entries, EntryModel{
				GUID:         e.GUID,
				LiftID:       e.LiftID,
				Headword:     e.Headword(),
				SenseCount:   len(e.Senses),
				Position:     i,
				DateCreated:  e.DateCreated,
				DateModified: e.DateModified,
				Body:         datatypes.JSON(body),
			})
			for j, s := range e.Senses {
				senses = append(senses, SenseModel{GUID: s.GUID, EntryGUID: e.GUID, LiftID: s.LiftID, Position: j})
			}
		}
		if err := createAll(tx, entries); err != nil {
			return fmt.Errorf("save entries: %w", err)
		}
		if err := createAll(tx, senses); err != nil {
			return fmt.Errorf("save senses: %w", err)
		}

		links := make([]LinkModel, 0)
		members := make([]LinkMemberModel, 0)
		for i, link := range lex.Links() {
			links = append(links, LinkModel{GUID: link.GUID, TypeGUID: link.Type, Position: i})
			for j, m := range link.Targets {
				members = append(members, LinkMemberModel{LinkGUID: link.GUID, MemberGUID: m, Position: j})
			}
		}
		if err := createAll(tx, links); err != nil {
			return fmt.Errorf("save links: %w", err)
		}
		if err := createAll(tx, members); err != nil {
			return fmt.Errorf("save link members: %w", err)
		}

		defs := make([]FieldDefModel, 0)
		for _, def := range lex.FieldDefs() {
			defs = append(defs, FieldDefModel{
				ID:          def.ID,
				OwnerKind:   string(def.OwnerKind),
				Name:        def.Name,
				ValueType:   string(def.Type),
				ListName:    def.ListName,
				WsSelector:  def.WsSelector,
				Description: toJSON(def.Description),
			})
		}
		if err := createAll(tx, defs); err != nil {
			return fmt.Errorf("save field defs: %w", err)
		}

		values := make([]FieldValueModel, 0)
		for _, owner := range lex.FieldValueOwners() {
			for name, v := range lex.FieldValues(owner) {
				raw, err := json.Marshal(v)
				if err != nil {
					return fmt.Errorf("encode field %s on %s: %w", name, owner, err)
				}
				values = append(values, FieldValueModel{ObjectGUID: owner, FieldName: name, Value: datatypes.JSON(raw)})
			}
		}
		if err := createAll(tx, values); err != nil {
			return fmt.Errorf("save field values: %w", err)
		}
		return nil
	})
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

func (r *LexiconRepository) GetEntry(ctx context.Context, guid uuid.UUID) (*domain.Entry, error) {
	var m EntryModel
	err := r.db.WithContext(ctx).Where("guid = ?", guid).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("entry %s: %w", guid, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var e domain.Entry
	if err := json.Unmarshal(m.Body, &e); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", guid, err)
	}
	return &e, nil
}

func (r *LexiconRepository) ListEntries(ctx context.Context, query string, limit int) ([]domain.EntrySummary, error) {
	q := r.db.WithContext(ctx).Model(&EntryModel{})
	if strings.TrimSpace(query) != "" {
		like := "%" + strings.TrimSpace(query) + "%"
		q = q.Where("headword LIKE ? OR lift_id LIKE ?", like, like)
	}
	rows := make([]EntryModel, 0)
	if err := q.Select("guid", "lift_id", "headword", "sense_count", "date_modified").Order("position").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.EntrySummary, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.EntrySummary{GUID: m.GUID, LiftID: m.LiftID, Headword: m.Headword, SenseCount: m.SenseCount, DateModified: m.DateModified})
	}
	return result, nil
}

func (r *LexiconRepository) ListLinks(ctx context.Context, refType string, limit int) ([]domain.LinkSummary, error) {
	type linkRow struct {
		GUID     uuid.UUID
		TypeGUID uuid.UUID
		TypeName string
		Kind     string
	}
	q := r.db.WithContext(ctx).Table("link_objects l").
		Select("l.guid, l.type_guid, COALESCE(t.label, '') AS type_name, COALESCE(t.kind, 'collection') AS kind").
		Joins("LEFT JOIN reference_types t ON t.guid = l.type_guid")
	if strings.TrimSpace(refType) != "" {
		q = q.Where("t.label = ? OR t.lift_id = ?", strings.TrimSpace(refType), strings.TrimSpace(refType))
	}
	links := make([]linkRow, 0)
	if err := q.Order("l.position").Limit(limit).Scan(&links).Error; err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []domain.LinkSummary{}, nil
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.GUID.String())
	}
	type memberRow struct {
		LinkGUID   uuid.UUID
		MemberGUID uuid.UUID
		Kind       string
		Headword   string
	}
	members := make([]memberRow, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT m.link_guid,
       m.member_guid,
       CASE WHEN e.guid IS NOT NULL THEN 'entry'
            WHEN s.guid IS NOT NULL THEN 'sense'
            ELSE '' END AS kind,
       COALESCE(e.headword, se.headword, '') AS headword
FROM link_members m
LEFT JOIN entries e ON e.guid = m.member_guid
LEFT JOIN senses s ON s.guid = m.member_guid
LEFT JOIN entries se ON se.guid = s.entry_guid
WHERE m.link_guid IN ?
ORDER BY m.link_guid, m.position
`, ids).Scan(&members).Error
	if err != nil {
		return nil, err
	}
	byLink := map[uuid.UUID][]domain.LinkMember{}
	for _, m := range members {
		byLink[m.LinkGUID] = append(byLink[m.LinkGUID], domain.LinkMember{GUID: m.MemberGUID, Kind: domain.ObjectKind(m.Kind), Headword: m.Headword})
	}

	result := make([]domain.LinkSummary, 0, len(links))
	for _, l := range links {
		result = append(result, domain.LinkSummary{GUID: l.GUID, TypeGUID: l.TypeGUID, TypeName: l.TypeName, Kind: l.Kind, Members: byLink[l.GUID]})
	}
	return result, nil
}

func (r *LexiconRepository) ListReferenceTypes(ctx context.Context, query string, limit int) ([]domain.ReferenceTypeSummary, error) {
	type row struct {
		GUID        uuid.UUID
		Label       string
		ReverseName datatypes.JSON
		Kind        string
		LinkCount   int
	}
	q := r.db.WithContext(ctx).Table("reference_types t").
		Select("t.guid, t.label, t.reverse_name, t.kind, (SELECT COUNT(*) FROM link_objects l WHERE l.type_guid = t.guid) AS link_count")
	if strings.TrimSpace(query) != "" {
		like := "%" + strings.TrimSpace(query) + "%"
		q = q.Where("t.label LIKE ? OR t.lift_id LIKE ?", like, like)
	}
	rows := make([]row, 0)
	if err := q.Order("t.position").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ReferenceTypeSummary, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ReferenceTypeSummary{
			GUID:        m.GUID,
			Name:        m.Label,
			ReverseName: multiFromJSON(m.ReverseName).First(),
			Kind:        m.Kind,
			LinkCount:   m.LinkCount,
		})
	}
	return result, nil
}

func (r *LexiconRepository) ListFieldDefs(ctx context.Context, ownerKind, query string, limit int) ([]domain.FieldDef, error) {
	q := r.db.WithContext(ctx).Model(&FieldDefModel{})
	if strings.TrimSpace(ownerKind) != "" {
		q = q.Where("owner_kind = ?", strings.TrimSpace(ownerKind))
	}
	if strings.TrimSpace(query) != "" {
		like := "%" + strings.TrimSpace(query) + "%"
		q = q.Where("name LIKE ?", like)
	}
	rows := make([]FieldDefModel, 0)
	if err := q.Order("id").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.FieldDef, 0, len(rows))
	for _, m := range rows {
		result = append(result, *fieldDefFromModel(m))
	}
	return result, nil
}

func (r *LexiconRepository) ListPossibilityLists(ctx context.Context, limit int) ([]domain.ListSummary, error) {
	rows := make([]domain.ListSummary, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT l.guid,
       l.name,
       (SELECT COUNT(*) FROM possibilities p WHERE p.list_guid = l.guid) AS item_count
FROM possibility_lists l
ORDER BY l.position
LIMIT ?
`, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LexiconRepository) ListPossibilities(ctx context.Context, listName string, limit int) ([]domain.Possibility, error) {
	q := r.db.WithContext(ctx).Model(&PossibilityModel{})
	if strings.TrimSpace(listName) != "" {
		q = q.Where("list_guid IN (SELECT guid FROM possibility_lists WHERE name = ?)", strings.TrimSpace(listName))
	}
	rows := make([]PossibilityModel, 0)
	if err := q.Order("position").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Possibility, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Possibility{
			GUID:        m.GUID,
			List:        m.ListGUID,
			Parent:      m.ParentGUID,
			LiftID:      m.LiftID,
			Label:       multiFromJSON(m.Label),
			Abbrev:      multiFromJSON(m.Abbrev),
			Description: multiFromJSON(m.Description),
		})
	}
	return result, nil
}

func (r *LexiconRepository) CreateImportRun(ctx context.Context, value domain.ImportRun) (domain.ImportRun, error) {
	m := ImportRunModel{
		Style:            value.Style,
		TrustTimestamps:  value.TrustTimestamps,
		Status:           defaultString(value.Status, "finished"),
		EntriesProcessed: value.EntriesProcessed,
		Created:          value.Created,
		Merged:           value.Merged,
		Skipped:          value.Skipped,
		LogCount:         value.LogCount,
		StartedAt:        value.StartedAt,
		FinishedAt:       value.FinishedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.ImportRun{}, err
	}
	return importRunFromModel(m), nil
}

func (r *LexiconRepository) AppendMergeLog(ctx context.Context, runID uint, entries []domain.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]MergeLogModel, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, MergeLogModel{
			RunID:      runID,
			Kind:       string(e.Kind),
			ObjectKind: string(e.ObjectKind),
			ObjectID:   e.ObjectID,
			Field:      e.Field,
			Message:    e.Message,
			OldValue:   e.Old,
			NewValue:   e.New,
			CreatedAt:  now,
		})
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

func (r *LexiconRepository) ListImportRuns(ctx context.Context, limit int) ([]domain.ImportRun, error) {
	rows := make([]ImportRunModel, 0)
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ImportRun, 0, len(rows))
	for _, m := range rows {
		result = append(result, importRunFromModel(m))
	}
	return result, nil
}

func (r *LexiconRepository) ListMergeLog(ctx context.Context, runID uint, kind string, limit int) ([]domain.MergeLogRecord, error) {
	q := r.db.WithContext(ctx).Model(&MergeLogModel{}).Where("run_id = ?", runID)
	if strings.TrimSpace(kind) != "" {
		q = q.Where("kind = ?", strings.TrimSpace(kind))
	}
	rows := make([]MergeLogModel, 0)
	if err := q.Order("id").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.MergeLogRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.MergeLogRecord{
			ID:    m.ID,
			RunID: m.RunID,
			LogEntry: domain.LogEntry{
				Kind:       domain.LogKind(m.Kind),
				ObjectKind: domain.ObjectKind(m.ObjectKind),
				ObjectID:   m.ObjectID,
				Field:      m.Field,
				Message:    m.Message,
				Old:        m.OldValue,
				New:        m.NewValue,
			},
			CreatedAt: m.CreatedAt,
		})
	}
	return result, nil
}

func importRunFromModel(m ImportRunModel) domain.ImportRun {
	return domain.ImportRun{
		ID:               m.ID,
		Style:            m.Style,
		TrustTimestamps:  m.TrustTimestamps,
		Status:           m.Status,
		EntriesProcessed: m.EntriesProcessed,
		Created:          m.Created,
		Merged:           m.Merged,
		Skipped:          m.Skipped,
		LogCount:         m.LogCount,
		StartedAt:        m.StartedAt,
		FinishedAt:       m.FinishedAt,
	}
}

func fieldDefFromModel(m FieldDefModel) *domain.FieldDef {
	owner, _ := domain.ParseOwnerKind(m.OwnerKind)
	typ, _ := domain.ParseFieldType(m.ValueType)
	return &domain.FieldDef{
		ID:          m.ID,
		OwnerKind:   owner,
		Name:        m.Name,
		Type:        typ,
		ListName:    m.ListName,
		WsSelector:  m.WsSelector,
		Description: multiFromJSON(m.Description),
	}
}

func toJSON(m domain.MultiString) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

func multiFromJSON(raw datatypes.JSON) domain.MultiString {
	if len(raw) == 0 {
		return nil
	}
	var m domain.MultiString
	if err := json.Unmarshal(raw, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
