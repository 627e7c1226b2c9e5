package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/broadcast"
	"github.com/BruksfildServices01/clinic-crm/internal/config"
	"github.com/BruksfildServices01/clinic-crm/internal/handlers"
	"github.com/BruksfildServices01/clinic-crm/internal/metrics"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	ucAccount "github.com/BruksfildServices01/clinic-crm/internal/usecase/account"
	ucBudget "github.com/BruksfildServices01/clinic-crm/internal/usecase/budget"
	ucLead "github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
	ucPatient "github.com/BruksfildServices01/clinic-crm/internal/usecase/patient"
	ucReport "github.com/BruksfildServices01/clinic-crm/internal/usecase/report"
	ucTag "github.com/BruksfildServices01/clinic-crm/internal/usecase/tag"
	ucTask "github.com/BruksfildServices01/clinic-crm/internal/usecase/task"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

// Infra holds the process singletons the routes are built on. Metrics,
// Hub and Uploader are optional.
type Infra struct {
	Store     store.Store
	Publisher timeline.Publisher
	Hub       *broadcast.Hub
	Metrics   *metrics.Metrics
	Uploader  ucReport.Uploader

	// DomainCheck overrides the e-mail DNS check on sign-up.
	DomainCheck func(email string) bool
}

func RegisterRoutes(r *gin.Engine, infra Infra, cfg *config.Config) {

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	if infra.Metrics != nil {
		r.Use(infra.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(infra.Metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ======================================================
	// 🧠 USE CASES
	// ======================================================
	accounts := ucAccount.NewAccounts(infra.Store, cfg.DefaultTimezone)
	if infra.DomainCheck != nil {
		accounts.WithDomainCheck(infra.DomainCheck)
	}

	patients := ucPatient.NewRegistry(infra.Store)
	leads := ucLead.NewDirectory(infra.Store, infra.Publisher)
	budgets := ucBudget.NewWorkflow(infra.Store, patients, infra.Publisher, cfg.BudgetFollowUpDays)
	tasks := ucTask.NewScheduler(infra.Store, infra.Publisher)
	tags := ucTag.NewIndex(infra.Store, infra.Publisher)
	reports := ucReport.NewAggregator(infra.Store)
	exporter := ucReport.NewExporter(reports, infra.Uploader)

	// ======================================================
	// 🧩 HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(accounts, cfg)
	meHandler := handlers.NewMeHandler(accounts)
	clinicHandler := handlers.NewClinicHandler(accounts, leads)
	leadHandler := handlers.NewLeadHandler(leads, tags)
	budgetHandler := handlers.NewBudgetHandler(budgets, accounts)
	taskHandler := handlers.NewTaskHandler(tasks)
	tagHandler := handlers.NewTagHandler(tags)
	reportHandler := handlers.NewReportHandler(reports, exporter, accounts)
	patientHandler := handlers.NewPatientHandler(patients)
	webhookHandler := handlers.NewWebhookHandler(leads, cfg.MetaWebhookToken)

	// ======================================================
	// 🌐 API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// 🔐 AUTH
		// ------------------------------
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		// ------------------------------
		// 📥 WEBHOOKS
		// ------------------------------
		api.GET("/webhooks/meta-leads/:clinicID", webhookHandler.Verify)
		api.POST("/webhooks/meta-leads/:clinicID", webhookHandler.Receive)

		// ------------------------------
		// 🔐 API PRIVADA
		// ------------------------------
		secured := api.Group("/me")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			secured.GET("", meHandler.GetMe)

			secured.GET("/clinic", clinicHandler.GetMeClinic)
			secured.PATCH("/clinic", clinicHandler.UpdateMeClinic)

			secured.GET("/pipeline-stages", clinicHandler.ListStages)
			secured.PUT("/pipeline-stages", clinicHandler.ReplaceStages)

			// ------------------------------
			// LEADS
			// ------------------------------
			secured.GET("/leads", leadHandler.List)
			secured.POST("/leads", leadHandler.Create)
			secured.POST("/leads/import", leadHandler.Import)
			secured.GET("/leads/:id", leadHandler.Get)
			secured.PATCH("/leads/:id", leadHandler.Update)
			secured.PATCH("/leads/:id/stage", leadHandler.MoveStage)
			secured.POST("/leads/:id/convert", leadHandler.Convert)
			secured.GET("/leads/:id/timeline", leadHandler.Timeline)
			secured.POST("/leads/:id/timeline", leadHandler.AddTimelineEvent)
			secured.GET("/leads/:id/messages", leadHandler.Messages)
			secured.POST("/leads/:id/messages", leadHandler.LogMessage)
			secured.GET("/leads/:id/tags", leadHandler.Tags)
			secured.PUT("/leads/:id/tags/:tagID", leadHandler.AttachTag)
			secured.DELETE("/leads/:id/tags/:tagID", leadHandler.DetachTag)

			// ------------------------------
			// BUDGETS
			// ------------------------------
			secured.GET("/budgets", budgetHandler.List)
			secured.POST("/budgets", budgetHandler.Create)
			secured.GET("/budgets/kpis", budgetHandler.KPIs)
			secured.GET("/budgets/:id", budgetHandler.Get)
			secured.PATCH("/budgets/:id", budgetHandler.Update)
			secured.PATCH("/budgets/:id/status", budgetHandler.SetStatus)
			secured.POST("/budgets/:id/present", budgetHandler.Present)

			// ------------------------------
			// TASKS
			// ------------------------------
			secured.GET("/tasks", taskHandler.List)
			secured.POST("/tasks", taskHandler.Create)
			secured.GET("/tasks/summary", taskHandler.Summary)
			secured.PATCH("/tasks/:id", taskHandler.Update)
			secured.DELETE("/tasks/:id", taskHandler.Delete)
			secured.POST("/tasks/:id/complete", taskHandler.Complete)
			secured.POST("/tasks/:id/cancel", taskHandler.Cancel)
			secured.POST("/tasks/:id/appointment", taskHandler.LinkAppointment)

			// ------------------------------
			// TAGS
			// ------------------------------
			secured.GET("/tags", tagHandler.List)
			secured.POST("/tags", tagHandler.Create)
			secured.GET("/tags/categories", tagHandler.Categories)

			// ------------------------------
			// REPORTS
			// ------------------------------
			secured.GET("/reports/funnel", reportHandler.Funnel)
			secured.GET("/reports/latency", reportHandler.Latency)
			secured.GET("/reports/owners", reportHandler.Owners)
			secured.GET("/reports/stages", reportHandler.Stages)
			secured.POST("/reports/export", reportHandler.Export)

			secured.GET("/patients", patientHandler.List)

			if infra.Hub != nil {
				secured.GET("/ws", handlers.NewRealtimeHandler(infra.Hub).Subscribe)
			}
		}
	}
}
