package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/kbgraph/pkg/config"
	"github.com/coolbeans/kbgraph/pkg/graph"
	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/query"
	"github.com/coolbeans/kbgraph/pkg/reification"
	"github.com/coolbeans/kbgraph/pkg/store"
)

var version = "0.1.0"

// Global flags
var (
	configPath  string
	metricsPath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kbgraph",
		Short: "Knowledge base statement editor",
		Long: `kbgraph reads and edits the statements of RDF knowledge bases.

Each knowledge base declares how its statements are reified:
  - none                plain subject-property-value triples
  - standard            rdf:Statement nodes that can carry qualifiers
  - singleton-property  one singleton property per statement
  - wikidata            claim / statement value / qualifier namespaces

Knowledge bases are defined in ~/.config/kbgraph/config.yaml, a kbgraph.yaml
in the current or a parent directory, or the file given with --config.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file")
	cmd.PersistentFlags().StringVar(&metricsPath, "metrics-file", "", "Write reification metrics to this file on exit")

	cmd.AddCommand(kbCmd())
	cmd.AddCommand(statementsCmd())
	cmd.AddCommand(qualifiersCmd())
	cmd.AddCommand(queryCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(configCmd())

	return cmd
}

// withApp opens the configured knowledge bases for the duration of run.
func withApp(cmd *cobra.Command, run func(a *app) error) error {
	a, err := openApp(cmd.Context(), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	runErr := run(a)

	if metricsPath != "" {
		if err := a.writeMetrics(metricsPath); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	return errors.Join(runErr, a.Close())
}

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect knowledge bases",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the configured knowledge bases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-20s %-20s %-10s %-9s %s\n", "ID", "REIFICATION", "TRIPLES", "READ-ONLY", "NAMESPACE")
				for _, knowledgeBase := range a.service.List() {
					repo, err := a.service.Repository(knowledgeBase.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%-20s %-20s %-10d %-9t %s\n",
						knowledgeBase.ID,
						knowledgeBase.ReificationMode,
						repo.Count(),
						knowledgeBase.ReadOnly,
						knowledgeBase.BaseNamespace)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "properties <kb>",
		Short: "List the declared properties of a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				knowledgeBase, err := a.knowledgeBase(args[0])
				if err != nil {
					return err
				}
				properties, err := a.service.ListProperties(cmd.Context(), knowledgeBase, true)
				if err != nil {
					return err
				}
				for _, property := range properties {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", property.Identifier, property.UIName())
				}
				return nil
			})
		},
	})

	return cmd
}

// bindValueFlags registers the flags that type a value argument. Flag names
// get prefix, so a command can type two values independently.
func bindValueFlags(cmd *cobra.Command, prefix string, flags *valueFlags) {
	cmd.Flags().BoolVar(&flags.iri, prefix+"iri", false, "Treat the value as an IRI or prefixed name")
	cmd.Flags().StringVar(&flags.datatype, prefix+"datatype", "", "Datatype IRI of a typed literal value (e.g., xsd:integer)")
	cmd.Flags().StringVar(&flags.lang, prefix+"lang", "", "Language tag of a string value")
	cmd.MarkFlagsMutuallyExclusive(prefix+"iri", prefix+"datatype", prefix+"lang")
}

// statementTarget is a statement named on the command line as
// <kb> <subject> <property> <value>.
type statementTarget struct {
	knowledgeBase kb.KnowledgeBase
	strategy      reification.Strategy
	statement     graph.Statement
}

func resolveStatement(a *app, args []string, flags valueFlags) (statementTarget, error) {
	knowledgeBase, err := a.knowledgeBase(args[0])
	if err != nil {
		return statementTarget{}, err
	}
	strategy, err := a.strategy(knowledgeBase)
	if err != nil {
		return statementTarget{}, err
	}
	statement := graph.NewStatement(
		graph.NewHandle(expandIRI(knowledgeBase, args[1])),
		graph.NewHandle(expandIRI(knowledgeBase, args[2])),
		flags.value(knowledgeBase, args[3]),
	)
	return statementTarget{knowledgeBase: knowledgeBase, strategy: strategy, statement: statement}, nil
}

// lookup replaces the target with the stored statement it names.
func (t *statementTarget) lookup(ctx context.Context, includeInferred bool) (bool, error) {
	statements, err := t.strategy.ListStatements(ctx, t.knowledgeBase, t.statement.Instance, includeInferred)
	if err != nil {
		return false, err
	}
	found, ok := findStatement(statements, t.statement.Property.Identifier, t.statement.Value)
	if ok {
		t.statement = found
	}
	return ok, nil
}

func statementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statements",
		Short: "List and edit statements",
	}
	cmd.AddCommand(statementsListCmd())
	cmd.AddCommand(statementsUpsertCmd())
	cmd.AddCommand(statementsDeleteCmd())
	return cmd
}

func statementsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <kb> <subject>",
		Short: "List the statements about a subject",
		Long: `List the statements about a subject.

Subjects and properties may be given as <iri>, prefixed names (kb:, rdf:,
rdfs:, owl:, xsd:, skos:) or bare names in the knowledge base namespace.

Example:
  kbgraph statements list people Person1
  kbgraph statements list people kb:Person1 --inferred`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			includeInferred, _ := cmd.Flags().GetBool("inferred")

			return withApp(cmd, func(a *app) error {
				knowledgeBase, err := a.knowledgeBase(args[0])
				if err != nil {
					return err
				}
				strategy, err := a.strategy(knowledgeBase)
				if err != nil {
					return err
				}

				subject := graph.NewHandle(expandIRI(knowledgeBase, args[1]))
				statements, err := strategy.ListStatements(cmd.Context(), knowledgeBase, subject, includeInferred)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, statement := range statements {
					printStatement(out, statement)
				}
				fmt.Fprintf(out, "\n%d statements\n", len(statements))
				return nil
			})
		},
	}

	cmd.Flags().Bool("inferred", false, "Include statements derived by the reasoner")
	return cmd
}

func printStatement(out io.Writer, statement graph.Statement) {
	marker := ""
	if statement.Inferred {
		marker = "  (inferred)"
	}
	fmt.Fprintf(out, "<%s> %s%s\n", statement.Property.Identifier, formatValue(statement.Value), marker)
	if statement.IsReified() {
		fmt.Fprintf(out, "    statement: <%s>\n", statement.StatementID)
	}
	for _, qualifier := range statement.Qualifiers {
		fmt.Fprintf(out, "    <%s> %s\n", qualifier.Property.Identifier, formatValue(qualifier.Value))
	}
}

func statementsUpsertCmd() *cobra.Command {
	var flags valueFlags

	cmd := &cobra.Command{
		Use:   "upsert <kb> <subject> <property> <value>",
		Short: "Assert a statement",
		Long: `Assert a statement. Upserting a statement that is only inferred makes it
explicit; upserting an existing statement changes nothing.

Example:
  kbgraph statements upsert people Person1 name Ada --lang en
  kbgraph statements upsert people Person1 born 1815-12-10 --datatype xsd:date
  kbgraph statements upsert people Person1 knows Person2 --iri`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				target, err := resolveStatement(a, args, flags)
				if err != nil {
					return err
				}
				if _, err := target.lookup(cmd.Context(), true); err != nil {
					return err
				}

				upserted, err := target.strategy.UpsertStatement(cmd.Context(), target.knowledgeBase, target.statement)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Upserted %s\n", upserted)
				return nil
			})
		},
	}

	bindValueFlags(cmd, "", &flags)
	return cmd
}

func statementsDeleteCmd() *cobra.Command {
	var flags valueFlags

	cmd := &cobra.Command{
		Use:   "delete <kb> <subject> <property> <value>",
		Short: "Delete a statement and its qualifiers",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				target, err := resolveStatement(a, args, flags)
				if err != nil {
					return err
				}
				found, err := target.lookup(cmd.Context(), false)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no explicit statement %s", target.statement)
				}

				if _, err := target.strategy.DeleteStatement(cmd.Context(), target.knowledgeBase, target.statement); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", target.statement)
				return nil
			})
		},
	}

	bindValueFlags(cmd, "", &flags)
	return cmd
}

func qualifiersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qualifiers",
		Short: "List and add statement qualifiers",
		Long: `List and add statement qualifiers.

Qualifiers need a reification mode with statement nodes (standard,
singleton-property or wikidata).`,
	}
	cmd.AddCommand(qualifiersListCmd())
	cmd.AddCommand(qualifiersAddCmd())
	return cmd
}

func qualifiersListCmd() *cobra.Command {
	var flags valueFlags

	cmd := &cobra.Command{
		Use:   "list <kb> <subject> <property> <value>",
		Short: "List the qualifiers of a statement",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				target, err := resolveStatement(a, args, flags)
				if err != nil {
					return err
				}
				found, err := target.lookup(cmd.Context(), true)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no statement %s", target.statement)
				}

				qualifiers, err := target.strategy.ListQualifiers(cmd.Context(), target.knowledgeBase, target.statement)
				if err != nil {
					return err
				}
				for _, qualifier := range qualifiers {
					fmt.Fprintf(cmd.OutOrStdout(), "<%s> %s\n", qualifier.Property.Identifier, formatValue(qualifier.Value))
				}
				return nil
			})
		},
	}

	bindValueFlags(cmd, "", &flags)
	return cmd
}

func qualifiersAddCmd() *cobra.Command {
	var flags, qualifierFlags valueFlags

	cmd := &cobra.Command{
		Use:   "add <kb> <subject> <property> <value> <qualifier> <qvalue>",
		Short: "Add a qualifier to a statement",
		Long: `Add a qualifier to a statement. The --q-iri, --q-datatype and --q-lang
flags type the qualifier value the way --iri, --datatype and --lang type the
statement value.

Example:
  kbgraph qualifiers add people Person1 knows Person2 source Letters --iri`,
		Args: cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				target, err := resolveStatement(a, args[:4], flags)
				if err != nil {
					return err
				}
				if !target.strategy.SupportsQualifiers() {
					return fmt.Errorf("knowledge base %s: %w", target.knowledgeBase.ID, reification.ErrUnsupportedOperation)
				}
				found, err := target.lookup(cmd.Context(), false)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no explicit statement %s", target.statement)
				}

				qualifier := graph.NewQualifier(target.statement,
					graph.NewHandle(expandIRI(target.knowledgeBase, args[4])),
					qualifierFlags.value(target.knowledgeBase, args[5]))
				added, err := target.strategy.AddQualifier(cmd.Context(), target.knowledgeBase, qualifier)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added <%s> %s to <%s>\n",
					added.Property.Identifier, formatValue(added.Value), added.Statement.StatementID)
				return nil
			})
		},
	}

	bindValueFlags(cmd, "", &flags)
	bindValueFlags(cmd, "q-", &qualifierFlags)
	return cmd
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <kb> <sparql>",
		Short: "Run a SPARQL SELECT query",
		Long: `Run a SPARQL SELECT query against a knowledge base.

Supported features:
  - SELECT with variables or *
  - DISTINCT, OPTIONAL, FILTER
  - ORDER BY, LIMIT, OFFSET
  - PREFIX declarations (rdf, rdfs, owl, xsd, skos and kb are predefined)

Output formats: table, json, csv

Example:
  kbgraph query people "SELECT ?name WHERE { kb:Person1 kb:name ?name }"
  kbgraph query people "SELECT * WHERE { ?s rdf:type kb:Person }" --inferred --format csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			includeInferred, _ := cmd.Flags().GetBool("inferred")
			format, _ := cmd.Flags().GetString("format")
			showTiming, _ := cmd.Flags().GetBool("timing")

			return withApp(cmd, func(a *app) error {
				knowledgeBase, err := a.knowledgeBase(args[0])
				if err != nil {
					return err
				}
				conn, err := a.service.GetConnection(cmd.Context(), knowledgeBase)
				if err != nil {
					return err
				}
				defer conn.Close()

				result, err := conn.Select(cmd.Context(), args[1], nil, includeInferred)
				if err != nil {
					return err
				}

				output, err := result.Format(query.OutputFormat(format))
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), output)

				if showTiming {
					fmt.Fprintf(cmd.ErrOrStderr(), "\nTiming: total=%v (parse=%v, plan=%v, exec=%v)\n",
						result.Metrics.TotalTime,
						result.Metrics.ParseTime,
						result.Metrics.PlanTime,
						result.Metrics.ExecuteTime)
				}
				return nil
			})
		},
	}

	cmd.Flags().Bool("inferred", false, "Include triples derived by the reasoner")
	cmd.Flags().StringP("format", "f", "table", "Output format (table, json, csv)")
	cmd.Flags().Bool("timing", false, "Show query timing")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <kb> <file.nt>",
		Short: "Import N-Triples into a knowledge base",
		Long: `Import N-Triples into a knowledge base in one transaction. Nothing is
imported if the file does not parse.

Example:
  kbgraph import people people.nt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[1], err)
			}
			defer file.Close()

			triples, err := store.ParseNTriples(file)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[1], err)
			}

			return withApp(cmd, func(a *app) error {
				knowledgeBase, err := a.knowledgeBase(args[0])
				if err != nil {
					return err
				}
				err = a.service.Update(cmd.Context(), knowledgeBase, func(conn *kb.Connection) error {
					return conn.Add(triples...)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d triples into %s\n", len(triples), knowledgeBase.ID)
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <kb>",
		Short: "Export the asserted triples of a knowledge base",
		Long: `Export the asserted triples of a knowledge base.

Output formats:
  - turtle    Turtle with the knowledge base prefixes (default)
  - ntriples  N-Triples, one sorted triple per line
  - jsonld    JSON-LD with a prefix @context
  - rdfxml    RDF/XML

Example:
  kbgraph export people
  kbgraph export people --format ntriples --output people.nt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			return withApp(cmd, func(a *app) error {
				knowledgeBase, err := a.knowledgeBase(args[0])
				if err != nil {
					return err
				}
				repo, err := a.service.Repository(knowledgeBase.ID)
				if err != nil {
					return err
				}

				data, err := serialize(knowledgeBase, repo, format)
				if err != nil {
					return err
				}

				if output == "" {
					fmt.Fprint(cmd.OutOrStdout(), data)
					return nil
				}
				if err := os.WriteFile(output, []byte(data), 0644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d triples to %s\n", repo.Count(), output)
				return nil
			})
		},
	}

	cmd.Flags().StringP("format", "f", "turtle", "Output format (turtle, ntriples, jsonld, rdfxml)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	return cmd
}

// serialize renders the asserted triples of repo in format, declaring the
// knowledge base prefixes where the format has them.
func serialize(knowledgeBase kb.KnowledgeBase, repo *store.TripleStore, format string) (string, error) {
	kbPrefixes := knowledgeBase.Prefixes()

	switch format {
	case "turtle", "ttl":
		var opts []store.TurtleOption
		for prefix, namespace := range kbPrefixes {
			opts = append(opts, store.WithPrefix(prefix, namespace))
		}
		return store.NewTurtleSerializer(opts...).Serialize(repo), nil

	case "ntriples", "nt":
		var builder strings.Builder
		if err := store.WriteNTriples(&builder, repo.All()); err != nil {
			return "", err
		}
		return builder.String(), nil

	case "jsonld", "json-ld":
		var opts []store.JSONLDOption
		for prefix, namespace := range kbPrefixes {
			opts = append(opts, store.WithJSONLDPrefix(prefix, namespace))
		}
		data, err := store.NewJSONLDSerializer(opts...).Serialize(repo)
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil

	case "rdfxml", "xml":
		var opts []store.RDFXMLOption
		for prefix, namespace := range kbPrefixes {
			opts = append(opts, store.WithRDFXMLPrefix(prefix, namespace))
		}
		return store.NewRDFXMLSerializer(opts...).Serialize(repo)

	default:
		return "", fmt.Errorf("unknown export format %q (expected turtle, ntriples, jsonld or rdfxml)", format)
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(nil).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User config: %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(nil).Load(configPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	return cmd
}
