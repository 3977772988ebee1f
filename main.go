package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/database"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/web"
	"github.com/ytschitwan/portal/web/entity"
	"github.com/ytschitwan/portal/web/service"
	"gorm.io/gorm"
)

func initLogger() {
	level, err := logger.LevelFromConfig(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
}

func openDB() *gorm.DB {
	db, err := database.Open(config.GetDatabaseConfig())
	if err != nil {
		log.Fatal(err)
	}
	return db
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	initLogger()
	defer logger.CloseLogger()

	db := openDB()
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warning("close database:", err)
		}
	}()

	server := web.NewServer(db)
	if err := server.Start(); err != nil {
		logger.Error("start server:", err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for sig := range sigCh {
		if err := server.Stop(); err != nil {
			logger.Warning("stop server err:", err)
		}
		if sig != syscall.SIGHUP {
			return
		}
		// SIGHUP reloads .env and restarts the listener on the same database.
		config.LoadEnv()
		server = web.NewServer(db)
		if err := server.Start(); err != nil {
			logger.Error("restart server:", err)
			return
		}
	}
}

func migrateDb() {
	initLogger()
	db := openDB()
	defer database.Close(db)
	fmt.Println("Database migrated")
}

func createAdmin(name, email, password string) {
	initLogger()
	db := openDB()
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	u, created, err := service.NewUserAdminService(db).EnsureAdmin(ctx, name, email, password)
	if err != nil {
		fmt.Println("Create admin failed:", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Admin %s created (id %d)\n", u.Email, u.Id)
	} else {
		fmt.Printf("User %s promoted to admin (id %d)\n", u.Email, u.Id)
	}
}

func listUsers(page, limit int) {
	initLogger()
	db := openDB()
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	users, p, err := service.NewUserAdminService(db).ListUsers(ctx, entity.PageRequest{Page: page, Limit: limit})
	if err != nil {
		fmt.Println("List users failed:", err)
		os.Exit(1)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.Id, u.Name, u.Email, u.Role, u.CreatedAt.Format(time.DateTime))
	}
	w.Flush()
	fmt.Printf("page %d/%d, %d users\n", p.Page, p.TotalPages, p.Total)
}

func main() {
	var envFile string
	var rootCmd = &cobra.Command{
		Use:     "portal",
		Short:   "Organization website backend",
		Version: config.GetVersion(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				config.LoadEnv(envFile)
			} else {
				config.LoadEnv()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file")

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			migrateDb()
		},
	}

	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var name, email, password string
	var createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing one",
		Run: func(cmd *cobra.Command, args []string) {
			createAdmin(name, email, password)
		},
	}
	createAdminCmd.Flags().StringVar(&name, "name", "", "display name")
	createAdminCmd.Flags().StringVar(&email, "email", "", "login email")
	createAdminCmd.Flags().StringVar(&password, "password", "", "login password")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	var page, limit int
	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Run: func(cmd *cobra.Command, args []string) {
			listUsers(page, limit)
		},
	}
	listCmd.Flags().IntVar(&page, "page", 1, "page number")
	listCmd.Flags().IntVar(&limit, "limit", entity.DefaultPageLimit, "accounts per page")

	userCmd.AddCommand(createAdminCmd, listCmd)
	rootCmd.AddCommand(runCmd, migrateCmd, userCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
