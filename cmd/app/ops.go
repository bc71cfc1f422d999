package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	sqliteadapter "github.com/sillsdev/liftmerge/internal/adapters/db/sqlite"
	"github.com/sillsdev/liftmerge/internal/adapters/liftjson"
	"github.com/sillsdev/liftmerge/internal/application"
	"github.com/sillsdev/liftmerge/internal/domain"
)

type importInput struct {
	EntriesPath     string
	Header          liftjson.Header
	Style           domain.MergeStyle
	TrustTimestamps bool
}

// localCall runs fn against the database file directly and hands the result
// to out through JSON, the same way the remote transports do.
func localCall(ctx context.Context, cfg cliConfig, out any, fn func(*application.ImportService) (any, error)) error {
	db, err := sqliteadapter.OpenMigrated(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}
	svc := application.NewImportService(sqliteadapter.NewLexiconRepository(db), nil)
	v, err := fn(svc)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func openEntries(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func doImport(ctx context.Context, cfg cliConfig, in importInput, out any) error {
	f, err := openEntries(in.EntriesPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	reader := liftjson.NewEntryReader(f)

	if cfg.Transport == "local" {
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ImportLIFT(ctx, application.ImportRequest{
				Ranges:          in.Header.Ranges,
				Headers:         in.Header.Fields,
				Source:          reader,
				Style:           in.Style,
				TrustTimestamps: in.TrustTimestamps,
			})
		})
	}

	payload := application.ImportPayload{
		Style:           in.Style,
		TrustTimestamps: in.TrustTimestamps,
		Ranges:          in.Header.Ranges,
		Fields:          in.Header.Fields,
		Entries:         []domain.LiftEntry{},
	}
	for {
		rec, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		payload.Entries = append(payload.Entries, *rec)
	}

	if cfg.Transport == "uds" {
		params := struct {
			Token string `json:"token,omitempty"`
			application.ImportPayload
		}{Token: cfg.Token, ImportPayload: payload}
		return newRPCClient(cfg.Socket).call(ctx, "import.run", params, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodPost, "/api/import", payload, out)
}

func doEntriesList(ctx context.Context, cfg cliConfig, q string, limit int, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ListEntries(ctx, q, limit)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "entries.list", map[string]any{"q": q, "limit": limit}, out)
	}
	path := withQuery("/api/entries", map[string]string{"q": q, "limit": limitParam(limit)})
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, path, nil, out)
}

func doEntryGet(ctx context.Context, cfg cliConfig, guid string, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.GetEntry(ctx, guid)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "entries.get", map[string]any{"guid": guid}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/entries/"+guid, nil, out)
}

func doRelationsList(ctx context.Context, cfg cliConfig, refType string, limit int, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ListLinks(ctx, refType, limit)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "relations.list", map[string]any{"type": refType, "limit": limit}, out)
	}
	path := withQuery("/api/relations", map[string]string{"type": refType, "limit": limitParam(limit)})
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, path, nil, out)
}

func doTypesList(ctx context.Context, cfg cliConfig, q string, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ListReferenceTypes(ctx, q, 0)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "types.list", map[string]any{"q": q}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, withQuery("/api/reference-types", map[string]string{"q": q}), nil, out)
}

func doFieldsList(ctx context.Context, cfg cliConfig, owner, q string, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ListFieldDefs(ctx, owner, q, 0)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "fields.list", map[string]any{"owner": owner, "q": q}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, withQuery("/api/fields", map[string]string{"owner": owner, "q": q}), nil, out)
}

func doListsList(ctx context.Context, cfg cliConfig, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ListPossibilityLists(ctx, 0)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "lists.list", nil, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/lists", nil, out)
}

func doListItems(ctx context.Context, cfg cliConfig, name string, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ListPossibilities(ctx, name, 0)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "lists.list", map[string]any{"list": name}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/lists/"+name+"/items", nil, out)
}

func doRunsList(ctx context.Context, cfg cliConfig, limit int, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ListImportRuns(ctx, limit)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "runs.list", map[string]any{"limit": limit}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, withQuery("/api/runs", map[string]string{"limit": limitParam(limit)}), nil, out)
}

func doRunLog(ctx context.Context, cfg cliConfig, runID uint, kind string, limit int, out any) error {
	switch cfg.Transport {
	case "local":
		return localCall(ctx, cfg, out, func(svc *application.ImportService) (any, error) {
			return svc.ListMergeLog(ctx, runID, kind, limit)
		})
	case "uds":
		return newRPCClient(cfg.Socket).call(ctx, "runs.log", map[string]any{"run_id": runID, "kind": kind, "limit": limit}, out)
	}
	path := withQuery(fmt.Sprintf("/api/runs/%d/log", runID), map[string]string{"kind": kind, "limit": limitParam(limit)})
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, path, nil, out)
}

func limitParam(limit int) string {
	if limit <= 0 {
		return ""
	}
	return strconv.Itoa(limit)
}
