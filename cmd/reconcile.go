package cmd

import (
	"fmt"

	"college-records/internal/config"
	domain "college-records/internal/domain/academic"
	"college-records/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	reconcileCourse     string
	reconcileTerm       string
	reconcileDepartment string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge duplicate offerings or sections",
	Long: `Run a reconciliation pass directly against the configured store. Both passes
take the same maintenance lock as the admin API, so only one job runs at a time.`,
}

var reconcileOfferingsCmd = &cobra.Command{
	Use:   "offerings",
	Short: "Merge duplicate course offerings",
	Long: `Merge offerings that share course, term and section. Sections of the
affected departments are reconciled first. Without --course and --term every
offering is considered.`,
	RunE: runReconcileOfferings,
}

var reconcileSectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "Merge sections whose names differ only in case or whitespace",
	RunE:  runReconcileSections,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.AddCommand(reconcileOfferingsCmd)
	reconcileCmd.AddCommand(reconcileSectionsCmd)

	reconcileOfferingsCmd.Flags().StringVar(&reconcileCourse, "course", "", "Limit to one course")
	reconcileOfferingsCmd.Flags().StringVar(&reconcileTerm, "term", "", "Limit to one academic term")

	reconcileSectionsCmd.Flags().StringVar(&reconcileDepartment, "department", "", "Department whose sections are merged")
	reconcileSectionsCmd.MarkFlagRequired("department")
}

// optionalUUID parses flag values that may be left empty
func optionalUUID(flag, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return &id, nil
}

func runReconcileOfferings(cmd *cobra.Command, args []string) error {
	req := &domain.ReconcileOfferingsRequest{}
	var err error
	if req.CourseID, err = optionalUUID("course", reconcileCourse); err != nil {
		return err
	}
	if req.TermID, err = optionalUUID("term", reconcileTerm); err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), config.Get(), false)
	if err != nil {
		logger.Error("Failed to initialize application: %v", err)
		return err
	}
	defer a.Close()

	result, err := a.maintenance.ReconcileOfferings(cmd.Context(), req)
	if err != nil {
		logger.Error("Offering reconciliation failed: %v", err)
		return err
	}
	return printJSON(result)
}

func runReconcileSections(cmd *cobra.Command, args []string) error {
	departmentID, err := uuid.Parse(reconcileDepartment)
	if err != nil {
		return fmt.Errorf("invalid --department: %w", err)
	}

	a, err := newApp(cmd.Context(), config.Get(), false)
	if err != nil {
		logger.Error("Failed to initialize application: %v", err)
		return err
	}
	defer a.Close()

	result, err := a.maintenance.ReconcileSections(cmd.Context(), &domain.ReconcileSectionsRequest{DepartmentID: departmentID})
	if err != nil {
		logger.Error("Section reconciliation failed: %v", err)
		return err
	}
	return printJSON(result)
}
