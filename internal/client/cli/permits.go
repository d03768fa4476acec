package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/client/services"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func (a *App) footer(outcome services.Outcome) {
	if outcome != services.Synced {
		a.println("(" + outcome.String() + ")")
	}
}

func (a *App) Counties(ctx context.Context) error {
	list, outcome, err := a.service.LoadCounties(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(list) == 0 {
		a.println("No counties.")
		return a.report(nil)
	}

	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tNAME\tSTATE")
	for _, c := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.State)
	}
	tw.Flush()
	a.footer(outcome)
	return a.report(nil)
}

func (a *App) Checklist(ctx context.Context, args []string) error {
	countyID, err := parseID(args, 0, "county id")
	if err != nil {
		return a.report(err)
	}

	items, outcome, err := a.service.GetCountyChecklist(ctx, countyID)
	if err != nil {
		return a.report(err)
	}
	if len(items) == 0 {
		a.println("No checklist items.")
		return a.report(nil)
	}

	tw := table(a.out)
	fmt.Fprintln(tw, "#\tID\tTITLE\tREQUIRED")
	for _, it := range items {
		req := ""
		if it.Required {
			req = "yes"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", it.OrderIndex, it.ID, it.Title, req)
	}
	tw.Flush()
	a.footer(outcome)
	return a.report(nil)
}

func (a *App) Packages(ctx context.Context) error {
	list, outcome, err := a.service.LoadPackages(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(list) == 0 {
		a.println("No packages.")
		return a.report(nil)
	}

	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tCOUNTY\tNAME\tSTATUS\tSYNC")
	for _, p := range list {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", p.ID, p.CountyID, p.Name, p.Status, syncMark(p.PendingSync))
	}
	tw.Flush()
	a.footer(outcome)
	return a.report(nil)
}

func syncMark(pending bool) string {
	if pending {
		return "pending"
	}
	return "ok"
}

// CreatePackage prompts for the package fields. Optional fields may be left
// empty.
func (a *App) CreatePackage(ctx context.Context) error {
	var in models.CreatePackageInput
	var err error

	if in.CountyID, err = GetID(a.reader, "County id", a.out); err != nil {
		return err
	}
	if in.Name, err = GetRequiredText(a.reader, "Package name", a.out); err != nil {
		return err
	}
	desc, err := GetMultiline(a.reader, "Description (optional)", a.out)
	if err != nil {
		return err
	}
	if desc != "" {
		in.Description = &desc
	}

	optional := []struct {
		prompt string
		dst    *string
	}{
		{"Customer name", &in.Customer.Name},
		{"Customer email", &in.Customer.Email},
		{"Site address", &in.Site.Address},
		{"Site city", &in.Site.City},
	}
	for _, f := range optional {
		if *f.dst, err = getSimpleText(a.reader, f.prompt+" (optional)", a.out); err != nil {
			return err
		}
	}

	p, outcome, err := a.service.CreatePackage(ctx, in)
	if err != nil {
		return a.report(err)
	}
	a.println(fmt.Sprintf("Package %d created (%s)", p.ID, outcome))
	return a.report(nil)
}

func (a *App) SetStatus(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "package id")
	if err != nil {
		return a.report(err)
	}
	if len(args) < 2 {
		return a.report(fmt.Errorf("missing status, one of: %s", statusList()))
	}
	status, err := models.ParsePackageStatus(args[1])
	if err != nil {
		return a.report(fmt.Errorf("%w, one of: %s", err, statusList()))
	}

	p, outcome, err := a.service.UpdatePackageStatus(ctx, id, status)
	if err != nil {
		return a.report(err)
	}
	a.println(fmt.Sprintf("Package %d is %s (%s)", p.ID, p.Status, outcome))
	return a.report(nil)
}

func statusList() string {
	var names []string
	for _, s := range models.PackageStatuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func (a *App) Documents(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "package id")
	if err != nil {
		return a.report(err)
	}

	docs, outcome, err := a.service.GetPackageDocuments(ctx, id)
	if err != nil {
		return a.report(err)
	}
	if len(docs) == 0 {
		a.println("No documents.")
		return a.report(nil)
	}

	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tITEM\tFILE\tSIZE\tAPPROVAL")
	for _, d := range docs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", d.ID, d.ChecklistItemID, d.FileName, d.FileSize, d.ApprovalStatus)
	}
	tw.Flush()
	a.footer(outcome)
	return a.report(nil)
}

func (a *App) RemoveDocument(ctx context.Context, args []string) error {
	pkg, err := parseID(args, 0, "package id")
	if err != nil {
		return a.report(err)
	}
	doc, err := parseID(args, 1, "document id")
	if err != nil {
		return a.report(err)
	}

	outcome, err := a.service.DeleteDocument(ctx, pkg, doc)
	if err != nil {
		return a.report(err)
	}
	a.println(fmt.Sprintf("Document %d removed (%s)", doc, outcome))
	return a.report(nil)
}
