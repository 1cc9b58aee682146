package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/calder/ticketyard/internal/alert"
	"github.com/calder/ticketyard/internal/assign"
	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/notify"
	"github.com/calder/ticketyard/internal/roster"
	"github.com/calder/ticketyard/internal/sprint"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func (s *Server) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/team/capacity", s.handleTeamCapacity)
	api.GET("/members", s.handleListMembers)
	api.GET("/members/:username", s.handleGetMember)
	api.PATCH("/members/:username", s.handleUpdateMember)
	api.POST("/members/:username/ooo", s.handleMarkOOO)
	api.DELETE("/members/:username/ooo", s.handleClearOOO)
	api.POST("/capacity/refresh", s.handleCapacityRefresh)

	api.POST("/assign", s.handleAssign)
	api.GET("/queue", s.handleQueue)
	api.POST("/queue/process", s.handleProcessQueue)

	api.POST("/tickets", s.handleCreateTicket)
	api.GET("/tickets/:request_id", s.handleGetTicket)

	api.GET("/alerts", s.handleAlerts)
	api.POST("/alerts/:id/resolve", s.handleResolveAlert)
}

// memberView is the JSON shape for a roster member.
type memberView struct {
	Username               string   `json:"username"`
	DisplayName            string   `json:"display_name"`
	Email                  string   `json:"email"`
	SeniorityLevel         string   `json:"seniority_level"`
	Skills                 []string `json:"skills"`
	CurrentPoints          int      `json:"current_points"`
	MaxPoints              int      `json:"max_points"`
	CurrentTicketCount     int      `json:"current_ticket_count"`
	Utilization            float64  `json:"utilization"`
	AvailabilityStatus     string   `json:"availability_status"`
	ManualCapacityOverride bool     `json:"manual_capacity_override"`
	IsOutOfOffice          bool     `json:"is_out_of_office"`
	PerformanceScore       float64  `json:"performance_score"`
}

func toMemberView(m *models.Member) memberView {
	skills := m.SkillList()
	if skills == nil {
		skills = []string{}
	}
	return memberView{
		Username:               m.Username,
		DisplayName:            m.DisplayName,
		Email:                  m.Email,
		SeniorityLevel:         m.SeniorityLevel,
		Skills:                 skills,
		CurrentPoints:          m.CurrentPoints,
		MaxPoints:              m.MaxPoints,
		CurrentTicketCount:     m.CurrentTicketCount,
		Utilization:            capacity.Utilization(m.CurrentPoints, m.MaxPoints),
		AvailabilityStatus:     m.AvailabilityStatus,
		ManualCapacityOverride: m.ManualCapacityOverride,
		IsOutOfOffice:          m.IsOutOfOffice,
		PerformanceScore:       m.PerformanceScore,
	}
}

func (s *Server) handleTeamCapacity(c *gin.Context) {
	members, err := roster.List(s.DB)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}

	views := make([]memberView, 0, len(members))
	totalCapacity, totalCommitted := 0, 0
	statusCounts := map[string]int{}
	for i := range members {
		v := toMemberView(&members[i])
		views = append(views, v)
		totalCapacity += v.MaxPoints
		totalCommitted += v.CurrentPoints
		statusCounts[v.AvailabilityStatus]++
	}

	c.JSON(http.StatusOK, gin.H{
		"members":         views,
		"total_capacity":  totalCapacity,
		"total_committed": totalCommitted,
		"utilization":     capacity.Utilization(totalCommitted, totalCapacity),
		"status_counts":   statusCounts,
	})
}

func (s *Server) handleListMembers(c *gin.Context) {
	members, err := roster.List(s.DB)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}
	views := make([]memberView, 0, len(members))
	for i := range members {
		views = append(views, toMemberView(&members[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetMember(c *gin.Context) {
	m, err := roster.Get(s.DB, c.Param("username"))
	if err != nil {
		errJSON(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, toMemberView(m))
}

// updateMemberRequest carries the mutable member fields. MaxPoints pins a
// manual capacity; AutoCapacity true clears the pin.
type updateMemberRequest struct {
	Skills           *[]string `json:"skills"`
	SeniorityLevel   *string   `json:"seniority_level"`
	MaxPoints        *int      `json:"max_points"`
	AutoCapacity     *bool     `json:"auto_capacity"`
	PerformanceScore *float64  `json:"performance_score"`
}

func (s *Server) handleUpdateMember(c *gin.Context) {
	username := c.Param("username")
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, err)
		return
	}

	m, err := roster.Get(s.DB, username)
	if err != nil {
		errJSON(c, http.StatusNotFound, err)
		return
	}

	if req.Skills != nil {
		if err := m.SetSkills(*req.Skills); err != nil {
			errJSON(c, http.StatusBadRequest, err)
			return
		}
		if err := s.DB.Model(&models.Member{}).Where("username = ?", username).
			Update("skills", m.Skills).Error; err != nil {
			errJSON(c, http.StatusInternalServerError, err)
			return
		}
	}
	if req.PerformanceScore != nil {
		if err := s.DB.Model(&models.Member{}).Where("username = ?", username).
			Update("performance_score", *req.PerformanceScore).Error; err != nil {
			errJSON(c, http.StatusInternalServerError, err)
			return
		}
	}
	if req.SeniorityLevel != nil {
		if err := roster.SetSeniority(s.DB, username, *req.SeniorityLevel,
			s.activeWindow(), s.Cfg.Capacity); err != nil {
			errJSON(c, http.StatusBadRequest, err)
			return
		}
	}
	if req.MaxPoints != nil {
		if err := roster.SetManualCapacity(s.DB, username, *req.MaxPoints); err != nil {
			errJSON(c, http.StatusBadRequest, err)
			return
		}
	}
	if req.AutoCapacity != nil && *req.AutoCapacity {
		if err := roster.ResetToAuto(s.DB, username, s.activeWindow(), s.Cfg.Capacity); err != nil {
			errJSON(c, http.StatusInternalServerError, err)
			return
		}
	}

	m, err = roster.Get(s.DB, username)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, toMemberView(m))
}

type oooRequest struct {
	Start      time.Time `json:"start" binding:"required"`
	End        time.Time `json:"end" binding:"required"`
	Reason     string    `json:"reason"`
	PartialPct float64   `json:"partial_pct"`
}

func (s *Server) handleMarkOOO(c *gin.Context) {
	username := c.Param("username")
	var req oooRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, err)
		return
	}
	if !req.End.After(req.Start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
		return
	}

	if err := roster.MarkOOO(s.DB, username, req.Start, req.End, req.Reason, req.PartialPct); err != nil {
		errJSON(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "status": models.StatusOOO})
}

func (s *Server) handleClearOOO(c *gin.Context) {
	username := c.Param("username")
	if err := roster.ClearOOO(s.DB, username); err != nil {
		errJSON(c, http.StatusNotFound, err)
		return
	}
	m, err := roster.Get(s.DB, username)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, toMemberView(m))
}

func (s *Server) handleCapacityRefresh(c *gin.Context) {
	if s.Workload == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no tracker configured"})
		return
	}
	synced, err := capacity.SyncAll(c.Request.Context(), s.DB, s.Workload, s.Windows, s.Cfg.Capacity)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

type assignRequest struct {
	IssueKey        string   `json:"issue_key" binding:"required"`
	Priority        string   `json:"priority"`
	EstimatedPoints int      `json:"estimated_points"`
	RequiredSkills  []string `json:"required_skills"`
}

func (s *Server) handleAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, err)
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	result, err := assign.Assign(s.DB, assign.TicketRef{
		IssueKey:        req.IssueKey,
		Priority:        req.Priority,
		EstimatedPoints: req.EstimatedPoints,
		RequiredSkills:  req.RequiredSkills,
	})
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}

	s.notifyOutcome(c, req.IssueKey, result)
	c.JSON(http.StatusOK, result)
}

// notifyOutcome announces an assignment or queued outcome on the configured
// chat platforms.
func (s *Server) notifyOutcome(c *gin.Context, issueKey string, result *assign.Result) {
	if s.Notify == nil {
		return
	}
	if result.Assigned {
		s.Notify.Send(c.Request.Context(),
			notify.AssignmentEvent(issueKey, result.Assignee, result.Reasoning, result.Score.Total))
		return
	}
	s.Notify.Send(c.Request.Context(), notify.QueuedEvent(issueKey, result.QueueReason))
}

func (s *Server) handleQueue(c *gin.Context) {
	entries, err := assign.AllEntries(s.DB)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleProcessQueue(c *gin.Context) {
	stats, err := assign.SweepQueue(s.DB, s.Cfg.Queue.MaxAttempts)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type createTicketRequest struct {
	Prompt     string `json:"prompt" binding:"required"`
	ProjectKey string `json:"project_key"`
	IssueType  string `json:"issue_type"`
}

func (s *Server) handleCreateTicket(c *gin.Context) {
	if s.Story == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no llm configured"})
		return
	}

	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, err)
		return
	}
	if req.ProjectKey == "" {
		req.ProjectKey = s.Cfg.Project
	}

	ticket, err := s.Story.CreateRequest(req.Prompt, req.ProjectKey, req.IssueType)
	if err != nil {
		errJSON(c, http.StatusBadRequest, err)
		return
	}

	ticket, result, err := s.Story.Process(c.Request.Context(), ticket.RequestID)
	if err != nil {
		log.Printf("api: process ticket %s: %v", ticket.RequestID, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"ticket": ticket,
			"error":  err.Error(),
		})
		return
	}

	s.notifyOutcome(c, ticket.IssueKey, result)
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket, "assignment": result})
}

func (s *Server) handleGetTicket(c *gin.Context) {
	var ticket models.Ticket
	err := s.DB.Where("request_id = ?", c.Param("request_id")).First(&ticket).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) handleAlerts(c *gin.Context) {
	alerts, err := alert.Unresolved(s.DB)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) handleResolveAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed alert id"})
		return
	}
	if err := alert.Resolve(s.DB, uint(id)); err != nil {
		errJSON(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": id})
}

// activeWindow resolves the current iteration, degrading to nil (default
// capacity) when no tracker is configured or the lookup fails.
func (s *Server) activeWindow() *sprint.Window {
	if s.Windows == nil {
		return nil
	}
	window, err := s.Windows.Active()
	if err != nil {
		log.Printf("api: active window: %v", err)
		return nil
	}
	return window
}

func errJSON(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{"error": err.Error()})
}
