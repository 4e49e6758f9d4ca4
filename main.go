package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"livematch-service/config"
	"livematch-service/database"
	"livematch-service/services"
	"livematch-service/thesports"
	"livematch-service/web"
)

func main() {
	log.Println("Starting Live Match Reconciliation Service...")

	// 加载 .env (不存在也没关系)
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	// 加载配置
	cfg := config.Load()

	// 连接数据库
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 运行数据库迁移
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database connected and migrated")

	// 存储和协调核心
	store := services.NewMatchStore(db)
	reconciler := services.NewReconciler(toSources(cfg.StatusTrustOrder))
	broker := services.NewInMemoryChangeBroker()

	orchestrator := services.NewOrchestrator(store, reconciler, broker, cfg.LockTimeout)
	orchestrator.Start()

	log.Printf("Orchestrator started (lock timeout: %v, status trust: %v)", cfg.LockTimeout, cfg.StatusTrustOrder)

	// 创建WebSocket Hub，把变更事件桥接给订阅者
	wsHub := web.NewHub()
	go wsHub.Run()

	go func() {
		for ev := range broker.Subscribe() {
			wsHub.BroadcastChange(ev)
		}
	}()

	// 上游REST客户端
	client := thesports.NewClientWithConfig(thesports.Config{
		BaseURL:  cfg.APIBaseURL,
		APIToken: cfg.APIToken,
		Timeout:  cfg.FetchTimeout,
	})

	// 启动快照轮询
	pollService := services.NewPollService(client, orchestrator, cfg.PollInterval)
	pollService.Start()

	// 推送处理器：MQTT 和 AMQP 共用
	pushHandler := services.NewPushHandler(orchestrator)

	// 启动MQTT推送客户端
	var mqttClient *thesports.MQTTClient
	if cfg.MQTTUsername != "" {
		mqttClient = thesports.NewMQTTClientWithBroker(cfg.MQTTBroker, cfg.MQTTUsername, cfg.MQTTPassword)
		mqttClient.OnMessage(cfg.MQTTTopic, pushHandler.HandleMessage)

		go func() {
			if err := mqttClient.Connect(); err != nil {
				log.Printf("❌ MQTT connect failed: %v", err)
				return
			}
			if err := mqttClient.Subscribe(cfg.MQTTTopic, thesports.QoSAtLeastOnce); err != nil {
				log.Printf("❌ MQTT subscribe failed: %v", err)
				return
			}
			log.Println("✅ MQTT push client started")
		}()
	} else {
		log.Println("⚠️  MQTT credentials not configured, push channel disabled")
	}

	// 启动AMQP推送消费者(可选)
	var amqpConsumer *services.AMQPConsumer
	if cfg.AMQPURL != "" {
		amqpConsumer = services.NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPQueue, pushHandler)
		go func() {
			if err := amqpConsumer.Start(); err != nil {
				log.Printf("❌ AMQP consumer failed: %v", err)
			}
		}()
	}

	// 启动一致性审计器
	auditor := services.NewAuditor(store, orchestrator, client, cfg.AuditInterval, cfg.OrphanCycles)
	auditor.Start()

	// 查询缓存 (注入 Server,进程退出时一并关闭)
	queryCache := services.NewQueryCache(5*time.Second, 256)

	// 启动Web服务器
	server := web.NewServer(cfg, db, wsHub, store, queryCache)
	if mqttClient != nil {
		server.SetPushChecker(mqttClient)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Printf("Web server stopped: %v", err)
		}
	}()

	log.Printf("Web server started on port %s", cfg.Port)
	log.Println("Service is running. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down service...")

	// 清理资源
	pollService.Stop()
	auditor.Stop()
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if amqpConsumer != nil {
		amqpConsumer.Stop()
	}
	server.Stop()
	orchestrator.Stop()
	broker.Close()
	queryCache.Stop()

	log.Println("Service stopped")
}

func toSources(order []string) []services.Source {
	sources := make([]services.Source, 0, len(order))
	for _, s := range order {
		sources = append(sources, services.Source(s))
	}
	return sources
}
