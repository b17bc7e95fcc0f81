package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/app"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// reportFlags are shared by the report and insights commands.
type reportFlags struct {
	from, to       string
	contact, phone string
	conversation   string
	status         string
	convType       string
	assigned       string
	inboxes        []int64
	agent, team    string
	msgStatuses    []string
	audio          string

	format  string
	out     string
	columns []string
}

func (f *reportFlags) register(cmd *cobra.Command, export bool) {
	cmd.Flags().StringVar(&f.from, "from", "", "First day, YYYY-MM-DD or DD/MM/YYYY (default: today)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day (default: --from)")
	cmd.Flags().StringVar(&f.contact, "contact", "", "Contact name pattern, * is a wildcard")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Contact number pattern")
	cmd.Flags().StringVar(&f.conversation, "conversation", "", "Conversation id pattern")
	cmd.Flags().StringVar(&f.status, "status", analytics.StatusAll, "Conversation status")
	cmd.Flags().StringVar(&f.convType, "type", string(analytics.TypeAll), "Conversation type: Todos, Bot or Agente")
	cmd.Flags().StringVar(&f.assigned, "assigned", string(analytics.AssignedAny), "Assigned: Todos, Sim or Não")
	cmd.Flags().Int64SliceVar(&f.inboxes, "inbox", nil, "Inbox ids")
	cmd.Flags().StringVar(&f.agent, "agent", "", "Assignee id")
	cmd.Flags().StringVar(&f.team, "team", "", "Team id")
	cmd.Flags().StringSliceVar(&f.msgStatuses, "message-status", nil, "Message statuses")
	if export {
		cmd.Flags().StringVar(&f.audio, "audio", string(analytics.AudioAny), "Messages listing audio filter: Todos, Sim or Não")
		cmd.Flags().StringVar(&f.format, "format", "csv", "Export format: csv or xlsx")
		cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output file (default: stdout)")
		cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "Columns to export, in order")
	}
}

func (f *reportFlags) period() (time.Time, time.Time, error) {
	from := time.Now().In(timestamp.Local())
	if f.from != "" {
		d, err := timestamp.ParseDay(f.from)
		if err != nil {
			return from, from, err
		}
		from = d
	}
	to := from
	if f.to != "" {
		d, err := timestamp.ParseDay(f.to)
		if err != nil {
			return from, to, err
		}
		to = d
	}
	return from, to, nil
}

func (f *reportFlags) filter() (analytics.Filter, error) {
	from, to, err := f.period()
	if err != nil {
		return analytics.Filter{}, err
	}
	filter := analytics.NewFilter(from, to)
	filter.ContactName = f.contact
	filter.ContactNumber = f.phone
	filter.ConversationID = f.conversation
	filter.Status = f.status
	filter.ConversationType = analytics.ConversationType(f.convType)
	filter.Assigned = analytics.AssignedFilter(f.assigned)
	filter.InboxIDs = f.inboxes
	filter.AgentID = f.agent
	filter.TeamID = f.team
	filter.MessageStatuses = f.msgStatuses
	return filter, filter.Validate()
}

func (f *reportFlags) messageQuery() (analytics.MessageQuery, error) {
	filter, err := f.filter()
	if err != nil {
		return analytics.MessageQuery{}, err
	}
	return analytics.MessageQuery{
		Start:          filter.Start,
		End:            filter.End,
		ContactName:    filter.ContactName,
		ContactNumber:  filter.ContactNumber,
		ConversationID: filter.ConversationID,
		Status:         filter.Status,
		Audio:          analytics.AudioFilter(f.audio),
		InboxIDs:       filter.InboxIDs,
	}, nil
}

// write renders t to --out or w.
func (f *reportFlags) write(w io.Writer, t analytics.Table, sheet string) error {
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.out, err)
		}
		defer file.Close()
		w = file
	}
	switch strings.ToLower(f.format) {
	case "csv":
		return t.WriteCSV(w)
	case "xlsx":
		return t.WriteXLSX(w, sheet)
	default:
		return fmt.Errorf("unknown format %q", f.format)
	}
}

func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export conversation reports",
		Example: `  # Conversations created last week as CSV
  cwctl report conversations --from 2024-03-01 --to 2024-03-07 -o conversas.csv

  # Bot messages of one inbox as a spreadsheet
  cwctl report analysis --from 01/03/2024 --type Bot --inbox 88473 --format xlsx -o analise.xlsx`,
	}
	cmd.AddCommand(newReportConversationsCommand(), newReportAnalysisCommand(), newReportMessagesCommand())
	return cmd
}

func newReportConversationsCommand() *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Conversations created in the period",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rows, err := a.Analytics.Conversations(ctx, filter)
				if err != nil {
					return err
				}
				columns := analytics.SelectColumns(analytics.ConversationColumns(rows), flags.columns)
				return flags.write(cmd.OutOrStdout(), analytics.ConversationTable(rows, columns), "conversas")
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newReportAnalysisCommand() *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Messages of the matching conversations, classified by author",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Analytics.Analysis(ctx, filter)
				if err != nil {
					return err
				}
				if len(res.FailedConversations) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d conversations could not be loaded\n", len(res.FailedConversations))
				}
				return flags.write(cmd.OutOrStdout(), analytics.MessageTable(res.Messages), "analise")
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newReportMessagesCommand() *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Raw messages sent in the period",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.messageQuery()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				listing, err := a.Analytics.Messages(ctx, q)
				if err != nil {
					return err
				}
				columns := analytics.SelectColumns(analytics.ListingColumns(listing.Records), flags.columns)
				return flags.write(cmd.OutOrStdout(), analytics.RecordTable(listing.Records, columns), "mensagens")
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}
