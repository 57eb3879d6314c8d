package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "foodscan/src/app"
	cfg "foodscan/src/configuration"
	"foodscan/src/nutrition"
	"foodscan/src/pipeline"
)

func RunServer(config *cfg.Properties) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	pprof.Register(router)

	store, err := app.NewBlobStore(
		config.S3.Host,
		config.S3.AccessKey,
		config.S3.SecretKey,
		config.S3.Bucket,
		true)
	if err != nil {
		logrus.Fatalf("could not connect to minio: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.S3.ReadTimeout)
	if err := nutrition.EnsureFoodList(ctx, store); err != nil {
		logrus.Warnf("can not initialize food list: %v", err)
	}
	cancel()

	mealLog := nutrition.NewLog(store)
	preprocessor := pipeline.NewPreprocessor("")
	client := pipeline.NewClient(config.Recognition.Host+config.Recognition.UploadPath, config.Recognition.Timeout)
	orchestrator := pipeline.NewOrchestrator(preprocessor, client, pipeline.Policy{
		CompressThreshold: config.Recognition.CompressThreshold,
		MaxDimension:      config.Recognition.MaxDimension,
		Quality:           config.Recognition.Quality,
		RetryMaxDimension: config.Recognition.RetryMaxDimension,
		RetryQuality:      config.Recognition.RetryQuality,
		Timeout:           config.Recognition.Timeout,
	})

	scanHandler := NewScanHandler(orchestrator, store, mealLog)
	mealHandler := NewMealHandler(mealLog)
	authHandler := NewAuthHandler(config)

	// Register Routes
	router.GET("/health", mealHandler.GetHealth)
	router.GET("/login", authHandler.Login)
	router.GET("/signin", authHandler.Signin)
	router.GET("/logout", authHandler.Logout)
	router.GET("/callback", authHandler.Callback)
	router.GET("/account", authHandler.Account)

	router.POST("/scan", scanHandler.PostScan)
	router.GET("/scans", scanHandler.GetScans)

	router.GET("/meals", mealHandler.GetMeals)
	router.POST("/meals", mealHandler.PostMeal)
	router.DELETE("/meals/:id", mealHandler.DeleteMeal)
	router.POST("/meals/:id/foods", mealHandler.PostFood)
	router.DELETE("/meals/:id/foods/:index", mealHandler.DeleteFood)
	router.GET("/totals", mealHandler.GetTotals)
	router.GET("/foods", mealHandler.GetFoods)

	router.NoRoute(func(ctx *gin.Context) { ctx.JSON(http.StatusNotFound, gin.H{}) })
	// Start the server
	router.Run(fmt.Sprintf(":%s", config.Server.Port))
}
