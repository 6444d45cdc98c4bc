package main

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/akarpov/examtrainer/internal/database"
	"github.com/akarpov/examtrainer/internal/secret"
	"github.com/chzyer/readline"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
)

// go run tools/console/main.go examtrainer.db

func main() {
	c := &coral.Command{
		Use:   "console",
		Short: "Operator console for the examtrainer database",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			fmt.Println("Opening", args[0])
			db, err := database.StormOpen(args[0], 5*time.Second)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			return repl(db)
		},
	}

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func repl(db database.Client) error {
	rl, err := readline.New("examtrainer> ")
	if err != nil {
		return errors.Wrap(err, "could not start readline")
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "could not read line")
		}

		switch err := execute(db, strings.Fields(line)); err {
		case nil:
		case io.EOF:
			return nil
		default:
			fmt.Println("Error:", err)
		}
	}
}

func execute(db database.Client, args []string) error {
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "help":
		fmt.Println("credentials | credential <user> | revoke <user> | sessions <user> | progress <user> <exam> | exit")
	case "exit", "quit":
		return io.EOF
	case "credentials":
		credentials, err := db.FindCredentials()
		if err != nil && !db.IsNotFound(err) {
			return err
		}
		litter.Dump(credentials)
	case "credential":
		if len(args) != 2 {
			return errors.New("usage: credential <user>")
		}
		credentials, err := db.FindCredentialsByUserID(args[1])
		if err != nil {
			return err
		}
		litter.Dump(credentials)
	case "revoke":
		if len(args) != 2 {
			return errors.New("usage: revoke <user>")
		}
		if err := secret.Revoke(db, args[1]); err != nil {
			return err
		}
		fmt.Println("revoked")
	case "sessions":
		if len(args) != 2 {
			return errors.New("usage: sessions <user>")
		}
		sessions, err := db.FindSessionsByUserID(args[1])
		if err != nil {
			return err
		}
		litter.Dump(sessions)
	case "progress":
		if len(args) != 3 {
			return errors.New("usage: progress <user> <exam>")
		}
		record, err := db.FindProgress(args[1], args[2])
		if err != nil {
			return err
		}
		litter.Dump(record)
	default:
		return errors.Errorf("unknown command: %s", args[0])
	}

	return nil
}
