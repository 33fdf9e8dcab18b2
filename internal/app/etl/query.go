package etl

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
)

type Querier interface {
	Query(ctx context.Context, sql string) (model.ResultSet, error)
}

// RunQuery prints the statement followed by its result table to w.
func RunQuery(ctx context.Context, w io.Writer, sql string, q Querier) error {
	if _, err := fmt.Fprintln(w, sql); err != nil {
		return fmt.Errorf("%w: failed to print query: %w", model.ErrStorage, err)
	}

	result, err := q.Query(ctx, sql)
	if err != nil {
		return err
	}

	if err := writeResultSet(w, result); err != nil {
		return fmt.Errorf("%w: failed to print query result: %w", model.ErrStorage, err)
	}
	return nil
}

// writeResultSet renders rows under their column names, each prefixed with
// its zero-based position.
func writeResultSet(w io.Writer, result model.ResultSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "\t"+strings.Join(result.Columns, "\t")+"\t")
	for i, row := range result.Rows {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, strconv.Itoa(i))
		for _, v := range row {
			cells = append(cells, formatCell(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return formatFloat(val)
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
