package history

import (
	"errors"
	"fmt"

	"github.com/rbpanama/idbhealth/internal/parquet"
)

// ExecuteHistoryExport exports every recorded run and table status to Parquet files
// named <outputFile>.runs.parquet and <outputFile>.table_status.parquet.
func ExecuteHistoryExport(outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	store := Manager.GetHistoryStore()
	if store == nil {
		return errors.New("run history is disabled. Set --history-backend to sqlite, mysql or postgresql")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total table status records: %d\n", status.TableSizes[tableStatusTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	statuses, err := store.GetAllTableStatuses()
	if err != nil {
		return fmt.Errorf("failed to retrieve table statuses: %w", err)
	}

	parquetRuns := parquet.ConvertRunRecords(runs)
	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	parquetStatuses := parquet.ConvertTableStatusRecords(statuses)
	statusFile := outputFile + ".table_status.parquet"
	if err := parquet.WriteTableStatusesParquet(parquetStatuses, statusFile); err != nil {
		return fmt.Errorf("failed to write table statuses: %w", err)
	}
	fmt.Printf("Exported %d table status records to: %s\n", len(parquetStatuses), statusFile)

	return nil
}
