package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"pharmagift/internal/database"
	"pharmagift/internal/utility"
)

var (
	queries   *database.Queries
	StartTime = time.Now()
)

// InitAdminPackage is called by the server package to initialize the
// database connection.
func InitAdminPackage(dbpool *pgxpool.Pool) {
	queries = database.New(dbpool)
	log.Info().Msg("Admin package initialized with database queries.")
}

// AdminOnlyMiddleware restricts a route to emails listed in ADMIN_EMAILS
// (comma separated). Runs after JwtAuthMiddleware.
func AdminOnlyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	admins := map[string]bool{}
	for _, e := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			admins[e] = true
		}
	}

	return func(c echo.Context) error {
		user, ok := c.Get("user").(*database.User)
		if !ok || !admins[strings.ToLower(user.Email)] {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Admin access required"})
		}
		return next(c)
	}
}

// AdminWebSocketHandler maintains the persistent dashboard connection that
// receives live search events and health updates.
func AdminWebSocketHandler(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.ErrUnauthorized
	}

	ws, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	suffix, err := utility.GenerateSecureToken(8)
	if err != nil {
		return err
	}
	connID := userID + ":" + suffix
	utility.RegisterAdminClient(connID, ws)
	defer utility.UnregisterAdminClient(connID)

	// Read loop keeps the socket open until the client goes away.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	return nil
}

// RecentSearchesHandler returns the newest ledger entries for the dashboard.
func RecentSearchesHandler(c echo.Context) error {
	ctx := c.Request().Context()

	limit := int32(50)
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = int32(n)
		}
	}

	searches, err := queries.ListRecentSearches(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch recent searches")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch searches"})
	}

	type searchRow struct {
		SearchType string `json:"search_type"`
		Query      string `json:"query,omitempty"`
		ClientIP   string `json:"client_ip"`
		Anonymous  bool   `json:"anonymous"`
		CreatedAt  string `json:"created_at"`
	}

	rows := make([]searchRow, 0, len(searches))
	for _, s := range searches {
		rows = append(rows, searchRow{
			SearchType: s.SearchType,
			Query:      s.Query.String,
			ClientIP:   s.ClientIP,
			Anonymous:  !s.UserID.Valid,
			CreatedAt:  s.CreatedAt.Time.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"searches": rows,
		"count":    len(rows),
	})
}

// GetServerHealthHandler collects and returns system-level metrics
func GetServerHealthHandler(c echo.Context) error {
	v, _ := mem.VirtualMemory()
	cpuPercent, _ := cpu.Percent(time.Second, false)
	d, _ := disk.Usage("/")
	hInfo, _ := host.Info()
	uptime := time.Since(StartTime).String()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "online",
		"runtime": map[string]interface{}{
			"uptime":     uptime,
			"start_time": StartTime.Format(time.RFC3339),
			"os":         hInfo.OS,
			"platform":   hInfo.Platform,
			"arch":       hInfo.KernelArch,
			"hostname":   hInfo.Hostname,
		},
		"cpu": map[string]interface{}{
			"usage_percent": fmt.Sprintf("%.2f%%", cpuPercent[0]),
			"cores":         hInfo.Procs,
		},
		"memory": map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(v.Total)/1024/1024/1024),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(v.Used)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
			"free_gb":      fmt.Sprintf("%.2f GB", float64(v.Free)/1024/1024/1024),
		},
		"disk": map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(d.Total)/1024/1024/1024),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(d.Used)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", d.UsedPercent),
		},
	})
}

// StartServerHealthBroadcaster runs in the background and sends stats to
// connected dashboards.
func StartServerHealthBroadcaster() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		// Skip the gather work when nobody is watching
		utility.AdminClientsMu.Lock()
		clientCount := len(utility.AdminClients)
		utility.AdminClientsMu.Unlock()

		if clientCount == 0 {
			continue
		}

		v, _ := mem.VirtualMemory()
		cpuPercent, _ := cpu.Percent(time.Second, false)
		d, _ := disk.Usage("/")

		healthData := map[string]interface{}{
			"type": "SYSTEM_HEALTH_UPDATE",
			"data": map[string]interface{}{
				"cpu_usage":  fmt.Sprintf("%.2f%%", cpuPercent[0]),
				"ram_usage":  fmt.Sprintf("%.2f%%", v.UsedPercent),
				"disk_usage": fmt.Sprintf("%.2f%%", d.UsedPercent),
				"timestamp":  time.Now().Format("15:04:05"),
			},
		}

		jsonMsg, _ := json.Marshal(healthData)
		utility.BroadcastToAdmins(string(jsonMsg))
	}
}
