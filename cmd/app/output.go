package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sillsdev/liftmerge/internal/application"
	"github.com/sillsdev/liftmerge/internal/domain"
)

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatMaybeTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func printImportOutcome(out application.ImportOutcome) {
	printKV([][2]string{
		{"run", uintToString(out.Run.ID)},
		{"style", out.Run.Style},
		{"status", out.Run.Status},
		{"entries", strconv.Itoa(out.Result.EntriesProcessed)},
		{"created", strconv.Itoa(out.Result.Created)},
		{"merged", strconv.Itoa(out.Result.Merged)},
		{"skipped", strconv.Itoa(out.Result.Skipped)},
		{"log entries", strconv.Itoa(len(out.Result.Log))},
	})
	counts := map[domain.LogKind]int{}
	for _, e := range out.Result.Log {
		counts[e.Kind]++
	}
	for _, kind := range []domain.LogKind{domain.LogConflict, domain.LogUnresolved, domain.LogWarning, domain.LogDeleted} {
		if counts[kind] > 0 {
			fmt.Printf("%d %s entries; see `liftmerge log %d --kind %s`\n", counts[kind], kind, out.Run.ID, kind)
		}
	}
}

func printEntrySummaries(items []domain.EntrySummary) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.GUID.String(), item.Headword, strconv.Itoa(item.SenseCount), formatTime(item.DateModified)})
	}
	printTable([]string{"GUID", "HEADWORD", "SENSES", "MODIFIED"}, rows)
}

func printEntry(e domain.Entry) {
	printKV([][2]string{
		{"guid", e.GUID.String()},
		{"id", e.LiftID},
		{"headword", e.Headword()},
		{"created", formatTime(e.DateCreated)},
		{"modified", formatTime(e.DateModified)},
		{"senses", strconv.Itoa(len(e.Senses))},
		{"allomorphs", strconv.Itoa(len(e.Allomorphs))},
		{"entry refs", strconv.Itoa(len(e.EntryRefs))},
	})
	for i, s := range e.Senses {
		fmt.Printf("  %d. %s %s\n", i+1, s.Gloss.First(), s.Definition.First())
	}
}

func printLinks(items []domain.LinkSummary) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		members := make([]string, 0, len(item.Members))
		for _, m := range item.Members {
			members = append(members, m.Headword)
		}
		rows = append(rows, []string{item.GUID.String(), item.TypeName, item.Kind, strings.Join(members, ", ")})
	}
	printTable([]string{"GUID", "TYPE", "KIND", "MEMBERS"}, rows)
}

func printReferenceTypes(items []domain.ReferenceTypeSummary) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.GUID.String(), item.Name, item.ReverseName, item.Kind, strconv.Itoa(item.LinkCount)})
	}
	printTable([]string{"GUID", "NAME", "REVERSE", "KIND", "LINKS"}, rows)
}

func printFieldDefs(items []domain.FieldDef) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{uintToString(item.ID), string(item.OwnerKind), item.Name, string(item.Type), item.ListName})
	}
	printTable([]string{"ID", "OWNER", "NAME", "TYPE", "LIST"}, rows)
}

func printLists(items []domain.ListSummary) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.GUID.String(), item.Name, strconv.Itoa(item.ItemCount)})
	}
	printTable([]string{"GUID", "NAME", "ITEMS"}, rows)
}

func printPossibilities(items []domain.Possibility) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.GUID.String(), item.LiftID, item.Label.First(), item.Abbrev.First()})
	}
	printTable([]string{"GUID", "ID", "LABEL", "ABBREV"}, rows)
}

func printRuns(items []domain.ImportRun) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID), item.Style, item.Status,
			strconv.Itoa(item.EntriesProcessed), strconv.Itoa(item.Created), strconv.Itoa(item.Merged), strconv.Itoa(item.Skipped),
			formatTime(item.StartedAt), formatMaybeTime(item.FinishedAt),
		})
	}
	printTable([]string{"ID", "STYLE", "STATUS", "ENTRIES", "CREATED", "MERGED", "SKIPPED", "STARTED", "FINISHED"}, rows)
}

func printMergeLog(items []domain.MergeLogRecord) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{string(item.Kind), string(item.ObjectKind), item.ObjectID, item.Field, item.Message})
	}
	printTable([]string{"KIND", "OBJECT", "ID", "FIELD", "MESSAGE"}, rows)
}
