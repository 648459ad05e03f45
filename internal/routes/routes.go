package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/c14220110/telekonsul-backend/config"
	chatControllers "github.com/c14220110/telekonsul-backend/internal/chat/controllers"
	chatRoutes "github.com/c14220110/telekonsul-backend/internal/chat/routes"
	chatServices "github.com/c14220110/telekonsul-backend/internal/chat/services"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	dokterControllers "github.com/c14220110/telekonsul-backend/internal/dokter/controllers"
	dokterRoutes "github.com/c14220110/telekonsul-backend/internal/dokter/routes"
	dokterServices "github.com/c14220110/telekonsul-backend/internal/dokter/services"
	konsultasiControllers "github.com/c14220110/telekonsul-backend/internal/konsultasi/controllers"
	konsultasiRoutes "github.com/c14220110/telekonsul-backend/internal/konsultasi/routes"
	konsultasiServices "github.com/c14220110/telekonsul-backend/internal/konsultasi/services"
	"github.com/c14220110/telekonsul-backend/internal/notifikasi"
	penggunaControllers "github.com/c14220110/telekonsul-backend/internal/pengguna/controllers"
	penggunaRoutes "github.com/c14220110/telekonsul-backend/internal/pengguna/routes"
	penggunaServices "github.com/c14220110/telekonsul-backend/internal/pengguna/services"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
	"github.com/c14220110/telekonsul-backend/ws"
)

// Deps berisi semua dependency yang dibutuhkan untuk merakit route.
type Deps struct {
	Config   *config.Config
	Stores   storage.Stores
	Files    *utils.FileStorage
	Hub      *ws.Hub
	Notifier notifikasi.Notifier
	Log      zerolog.Logger
}

// Init menginisialisasi semua routes menggunakan Echo framework
func Init(e *echo.Echo, d Deps) {
	// Inisialisasi service
	authService := penggunaServices.NewAuthService(d.Stores.Users, d.Config.JWTTTL)
	profileService := penggunaServices.NewProfileService(d.Stores, d.Files, d.Log)
	ratingService := penggunaServices.NewRatingService(d.Stores)
	dokterService := dokterServices.NewDokterService(d.Stores.Doctors, d.Files, d.Log)
	konsultasiDokterService := dokterServices.NewKonsultasiDokterService(d.Stores, d.Hub, d.Notifier, d.Log)
	konsultasiService := konsultasiServices.NewKonsultasiService(d.Stores, d.Files, d.Log)
	chatService := chatServices.NewChatService(d.Stores, d.Files, d.Hub, d.Notifier, d.Config.PDFFontPath, d.Log)

	// File upload disajikan sebagai static file
	for _, dir := range utils.PublicDirs {
		e.Static("/"+dir, d.Files.Root+"/"+dir)
	}

	e.GET("/health", func(c echo.Context) error {
		return response.OK(c, "OK", map[string]string{"status": "up"})
	})
	e.GET("/ws", ws.ServeWS(d.Hub, chatService))

	// Grup API utama
	api := e.Group("/api")
	penggunaRoutes.RegisterAuthRoutes(api, penggunaControllers.NewAuthController(authService))
	penggunaRoutes.RegisterUserRoutes(api, penggunaControllers.NewUserController(profileService, ratingService))
	dokterRoutes.RegisterDokterRoutes(api,
		dokterControllers.NewDokterController(dokterService),
		dokterControllers.NewKonsultasiDokterController(konsultasiDokterService),
	)
	konsultasiRoutes.RegisterKonsultasiRoutes(api, konsultasiControllers.NewKonsultasiController(konsultasiService))
	chatRoutes.RegisterChatRoutes(api, chatControllers.NewChatController(chatService))
}
