package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/akarpov/examtrainer/internal/database"
	"github.com/akarpov/examtrainer/internal/secret"
	"github.com/akarpov/examtrainer/internal/server"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const dbname = "examtrainer.db"

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg  string
	user string
)

func main() {
	c := &coral.Command{
		Use:     "examtrainer",
		Short:   "Exam trainer credential and progress server",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	initCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(initCmd)

	serverCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(serverCmd)

	secretCmd.PersistentFlags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	secretNewCmd.Flags().StringVarP(&user, "user", "u", "", "User identifier")
	secretRevokeCmd.Flags().StringVarP(&user, "user", "u", "", "User identifier")
	secretCmd.AddCommand(secretNewCmd, secretRevokeCmd, secretListCmd)
	c.AddCommand(secretCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

// konfiguration builds the immutable runtime configuration: defaults,
// then the YAML file (if any), then EXAMTRAINER_* environment overrides.
func konfiguration() (*koanf.Koanf, error) {
	konf := koanf.New(".")

	err := konf.Load(confmap.Provider(map[string]interface{}{
		"address":           "localhost:5000",
		"database_path":     "",
		"session.ttl":       "720h",
		"session.permanent": true,
		"store.timeout":     "5s",
		"no_color":          false,
	}, "."), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not load default configuration")
	}

	if cfg != "" {
		if err = konf.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "could not load configuration file")
		}
	}

	err = konf.Load(env.Provider("EXAMTRAINER_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "EXAMTRAINER_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	return konf, errors.Wrap(err, "could not load environment configuration")
}

func dbnameWithPath(path string) string {
	if len(path) == 0 {
		return dbname
	}
	return filepath.Join(path, dbname)
}

func opendb(konf *koanf.Koanf) (database.Client, error) {
	return database.StormOpen(
		dbnameWithPath(konf.String("database_path")),
		konf.Duration("store.timeout"),
	)
}

func setuplog(konf *koanf.Koanf) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: konf.Bool("no_color"),
	})

	if filename := konf.String("log.file"); filename != "" {
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   filename,
			MaxSize:    20, // megabytes
			MaxBackups: 2,
			MaxAge:     10, // days
		})
	}
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := konfiguration()
			if err != nil {
				return err
			}

			return database.StormInit(dbnameWithPath(konf.String("database_path")))
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := konfiguration()
			if err != nil {
				return err
			}
			setuplog(konf)

			db, err := opendb(konf)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			engine := server.EchoEngine(server.IOC{
				Version:        version,
				Database:       db,
				SessionTTL:     konf.MustDuration("session.ttl"),
				SessionSliding: konf.Bool("session.permanent"),
			})
			server.PrintRoutes(engine)

			address := konf.String("address")
			message := "could not run server"
			logrus.Infof("Server listening on %s", address)
			parts := strings.Split(address, ":")
			if len(parts) == 2 && parts[0] == "unix" {
				socketFile := parts[1]
				if _, err := os.Stat(socketFile); err == nil {
					logrus.Infof("Removing existing %s", socketFile)
					os.Remove(socketFile)
				}
				defer os.Remove(socketFile)
				listener, err := net.Listen(parts[0], socketFile)
				if err != nil {
					return err
				}
				return errors.Wrap(engine.Server.Serve(listener), message)
			}
			return errors.Wrap(engine.Start(address), message)
		},
	}

	//
	//
	secretCmd = &coral.Command{
		Use:   "secret",
		Short: "Manage user credentials (out-of-band administration)",
		Args:  coral.ExactArgs(0),
	}

	secretNewCmd = &coral.Command{
		Use:   "new",
		Short: "Issue a new secret token for a user",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			if user == "" {
				return errors.New("user is required")
			}

			konf, err := konfiguration()
			if err != nil {
				return err
			}

			db, err := opendb(konf)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			token, err := secret.Issue(db, user)
			if err != nil {
				return err
			}

			// Printed once; only the digest is stored.
			fmt.Printf("Secret for %s:\n\n  %s\n\nStore it in a safe place, it cannot be displayed again.\n", user, token)
			return nil
		},
	}

	secretRevokeCmd = &coral.Command{
		Use:   "revoke",
		Short: "Revoke all of a user's secret tokens",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			if user == "" {
				return errors.New("user is required")
			}

			konf, err := konfiguration()
			if err != nil {
				return err
			}

			db, err := opendb(konf)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			if err = secret.Revoke(db, user); err != nil {
				return err
			}

			fmt.Printf("Credentials of %s revoked.\n", user)
			return nil
		},
	}

	secretListCmd = &coral.Command{
		Use:   "list",
		Short: "List issued credentials",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := konfiguration()
			if err != nil {
				return err
			}

			db, err := opendb(konf)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			credentials, err := db.FindCredentials()
			if err != nil && !db.IsNotFound(err) {
				return err
			}

			for _, credential := range credentials {
				state := "active"
				if credential.Revoked {
					state = "revoked"
				}
				fmt.Printf("%-24s %-8s issued %s\n", credential.UserID, state, credential.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
)
