package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/panduza/pza-runtime/pkg/factory"
	"github.com/panduza/pza-runtime/pkg/log"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/runtime"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pza-demo",
	Short: "Reference in-process runtime demo: a broker, a tiny catalog and one produced instance",
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func demoFactory() *factory.Factory {
	f := factory.New(log.WithComponent("factory"))
	f.AddProducer("acme", "thermo", thermoProducer{})
	return f
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the registered producer catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		store := demoFactory().Store()

		switch format {
		case "json":
			out, err := store.ToJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		case "yaml":
			out, err := yaml.Marshal(store)
			if err != nil {
				return fmt.Errorf("marshal catalog as yaml: %w", err)
			}
			fmt.Print(string(out))
		default:
			return fmt.Errorf("unknown format %q (want json or yaml)", format)
		}
		return nil
	},
}

func init() {
	catalogCmd.Flags().String("format", "json", "Output format: json or yaml")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Produce one acme.thermo instance and stream its notifications until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		namespace, _ := cmd.Flags().GetString("namespace")
		file, _ := cmd.Flags().GetString("file")

		order := factory.ProductionOrder{Dref: "acme.thermo", Name: name}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read order file: %w", err)
			}
			order, err = factory.ProductionOrderFromYAML(data)
			if err != nil {
				return fmt.Errorf("parse order file: %w", err)
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sess := pubsub.NewBroker()
		defer sess.Close()

		opts := runtime.DefaultOptions()
		opts.Namespace = namespace
		rt := runtime.New(log.WithComponent("runtime"), demoFactory(), sess, opts)

		go func() {
			if err := rt.Run(ctx); err != nil && err != context.Canceled {
				log.Logger.Error().Err(err).Msg("runtime stopped")
			}
		}()

		if _, err := rt.Submit(ctx, order); err != nil {
			return fmt.Errorf("submit production order: %w", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		fmt.Printf("produced %q under %s, press Ctrl+C to stop\n", order.Name, rt.RootTopic())
		for {
			select {
			case n := <-rt.Notifications():
				fmt.Printf("[%s] %s %s\n", n.Kind, n.Topic, string(n.Payload))
			case <-sigCh:
				fmt.Println("shutting down...")
				cancel()
				rt.Shutdown()
				return nil
			}
		}
	},
}

func init() {
	runCmd.Flags().String("name", "thermo-1", "Instance name")
	runCmd.Flags().String("namespace", "demo", "Topic namespace instances are rooted under")
	runCmd.Flags().StringP("file", "f", "", "Apply a ProductionOrder from a YAML file instead of --name (--namespace still applies)")
}
