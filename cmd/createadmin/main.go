// cmd/createadmin/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	code := run(context.Background(), db, os.Stdin, os.Stdout)
	database.Close(db)
	os.Exit(code)
}

type nameInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

type emailInput struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type passwordInput struct {
	Password string `json:"password" validate:"required,strong_password"`
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s:\n> ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s (yes/no) [yes]:\n> ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true, nil
	}
	return false, nil
}

// firstError prints the first message reported for field and reports
// whether there was one.
func (p *prompter) firstError(input interface{}, field string) bool {
	verr := utils.Validate(input)
	if verr == nil {
		return false
	}
	if messages := verr.Fields[field]; len(messages) > 0 {
		fmt.Fprintln(p.out, messages[0])
	} else {
		fmt.Fprintln(p.out, verr.Error())
	}
	return true
}

// run drives the prompts and returns the process exit code.
func run(ctx context.Context, db *gorm.DB, in io.Reader, out io.Writer) int {
	p := &prompter{in: bufio.NewReader(in), out: out}

	name, err := p.ask("Name")
	if err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	if p.firstError(&nameInput{Name: name}, "name") {
		return 1
	}

	email, err := p.ask("Email")
	if err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	email = models.NormalizeEmail(email)
	if p.firstError(&emailInput{Email: email}, "email") {
		return 1
	}
	var count int64
	if err := db.WithContext(ctx).Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	if count > 0 {
		fmt.Fprintln(out, "The email has already been taken.")
		return 1
	}

	password, err := p.ask("Password")
	if err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	confirmation, err := p.ask("Confirm password")
	if err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	if p.firstError(&passwordInput{Password: password}, "password") {
		return 1
	}
	if password != confirmation {
		fmt.Fprintln(out, "The password field confirmation does not match.")
		return 1
	}

	ok, err := p.confirm("Do you wish to continue?")
	if err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(out, "Aborted.")
		return 1
	}

	now := time.Now()
	admin := &models.User{
		Name:            name,
		Email:           email,
		Role:            models.UserRoleAdmin,
		EmailVerifiedAt: &now,
	}
	if err := admin.SetPassword(password); err != nil {
		fmt.Fprintln(out, err)
		return 1
	}
	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		fmt.Fprintln(out, err)
		return 1
	}

	fmt.Fprintln(out, "Successfully created admin.")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tEmail")
	fmt.Fprintf(tw, "%s\t%s\n", admin.Name, admin.Email)
	tw.Flush()
	return 0
}
