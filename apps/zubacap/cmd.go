package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/zubacap/zubacap-go/core/session"
	"github.com/zubacap/zubacap-go/core/training"
	"github.com/zubacap/zubacap-go/gateway/rest"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotSignedIn = errors.New("not signed in")
)

type commandLine struct {
	st     *session.Store
	svc    *training.Service
	client *rest.Client
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -identifier USERNAME|EMAIL      - sign in; the password is prompted next")
	fmt.Fprintln(cli.out, "  logout                                - sign out and forget the stored credential")
	fmt.Fprintln(cli.out, "  whoami                                - show the current identity")
	fmt.Fprintln(cli.out, "  programs                              - list your programs with your role in each")
	fmt.Fprintln(cli.out, "  modules -program ID                   - list a program's modules in order")
	fmt.Fprintln(cli.out, "  lessons -module ID                    - list a module's lessons in order")
	fmt.Fprintln(cli.out, "  complete -lesson ID                   - mark a lesson as completed")
	fmt.Fprintln(cli.out, "  code -code CODE                       - look up an invitation code")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "login":
		loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
		identifier := loginCmd.String("identifier", "", "Your username or email. The password will be prompted next.")
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *identifier == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		return cli.login(ctx, *identifier, string(pwd))

	case "logout":
		cli.st.Logout()
		fmt.Fprintln(cli.out, "Signed out.")
		return nil

	case "whoami":
		return cli.whoami(ctx)

	case "programs":
		return cli.programs(ctx)

	case "modules":
		modulesCmd := flag.NewFlagSet("modules", flag.ExitOnError)
		programID := modulesCmd.Int("program", 0, "The program ID.")
		if err := modulesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *programID == 0 {
			modulesCmd.Usage()
			return errHelp
		}
		return cli.modules(ctx, *programID)

	case "lessons":
		lessonsCmd := flag.NewFlagSet("lessons", flag.ExitOnError)
		moduleID := lessonsCmd.Int("module", 0, "The module ID.")
		if err := lessonsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *moduleID == 0 {
			lessonsCmd.Usage()
			return errHelp
		}
		return cli.lessons(ctx, *moduleID)

	case "complete":
		completeCmd := flag.NewFlagSet("complete", flag.ExitOnError)
		lessonID := completeCmd.Int("lesson", 0, "The lesson ID.")
		if err := completeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *lessonID == 0 {
			completeCmd.Usage()
			return errHelp
		}
		return cli.complete(ctx, *lessonID)

	case "code":
		codeCmd := flag.NewFlagSet("code", flag.ExitOnError)
		code := codeCmd.String("code", "", "The invitation code.")
		if err := codeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *code == "" {
			codeCmd.Usage()
			return errHelp
		}
		return cli.code(ctx, *code)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, identifier, password string) error {
	if err := cli.st.Login(ctx, identifier, password); err != nil {
		return err
	}
	usr, _ := cli.st.Identity()
	fmt.Fprintf(cli.out, "Signed in as %s <%s>\n", usr.Username, usr.Email)
	return nil
}

func (cli *commandLine) whoami(ctx context.Context) error {
	cli.st.Initialize(ctx)
	usr, ok := cli.st.Identity()
	if !ok {
		return errNotSignedIn
	}
	fmt.Fprintf(cli.out, "%s <%s>\n", usr.Username, usr.Email)
	fmt.Fprintf(cli.out, "  instructor of %d, supervisor of %d, enrolled in %d program(s)\n",
		len(usr.InstructorOf), len(usr.SupervisorOf), len(usr.Enrollments))
	return nil
}

func (cli *commandLine) programs(ctx context.Context) error {
	usr, err := cli.client.Me(ctx)
	if err != nil {
		return err
	}
	programs, err := cli.svc.ProgramsForUser(ctx, usr.ID)
	if err != nil {
		return err
	}
	if len(programs) == 0 {
		fmt.Fprintln(cli.out, "No programs assigned yet.")
		return nil
	}
	for i := range programs {
		p := &programs[i]
		fmt.Fprintf(cli.out, "%6d  %-12s %-10s %s\n", p.ID, p.RoleOf(usr.ID), p.Status, p.Name)
	}
	return nil
}

func (cli *commandLine) modules(ctx context.Context, programID int) error {
	modules, err := cli.svc.ModulesForProgram(ctx, programID)
	if err != nil {
		return err
	}
	for i := range modules {
		fmt.Fprintf(cli.out, "%6d  #%-3d %s\n", modules[i].ID, modules[i].Order, modules[i].Title)
	}
	return nil
}

func (cli *commandLine) lessons(ctx context.Context, moduleID int) error {
	lessons, err := cli.svc.LessonsForModule(ctx, moduleID)
	if err != nil {
		return err
	}
	for i := range lessons {
		l := &lessons[i]
		marker := " "
		if l.VideoURL != "" {
			marker = "▶"
		}
		fmt.Fprintf(cli.out, "%6d  #%-3d %s %s\n", l.ID, l.Order, marker, l.Title)
	}
	return nil
}

func (cli *commandLine) complete(ctx context.Context, lessonID int) error {
	record, err := cli.svc.RecordLessonProgress(ctx, lessonID, training.LessonCompleted)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Lesson %d marked as %s (record %d)\n", lessonID, record.Status, record.ID)
	return nil
}

func (cli *commandLine) code(ctx context.Context, code string) error {
	match, err := cli.svc.ValidateInvitationCode(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: %d of %d uses left\n", match.Code, match.UsesRemaining(), match.MaxUses)
	if match.Program != nil {
		fmt.Fprintf(cli.out, "  grants access to %q\n", match.Program.Name)
	}
	return nil
}
