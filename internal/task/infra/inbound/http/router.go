package http

import "github.com/gin-gonic/gin"

// RegisterTaskRoutes registra las rutas HTTP para el dominio de Tareas.
func RegisterTaskRoutes(r *gin.Engine, handler *TaskHandler) {
	r.GET("/health", handler.Health)

	// Agrupamos todas las rutas de tareas bajo el prefijo "/tasks"
	tasks := r.Group("/tasks")
	{
		tasks.POST("", handler.CreateTask)            // Crear una nueva tarea
		tasks.GET("", handler.ListTasks)              // Listar la vista con filtros
		tasks.GET("/summary", handler.GetSummary)     // Resumen (cache-aside)
		tasks.POST("/refresh", handler.Refresh)       // Recargar desde el store
		tasks.GET("/:id", handler.GetTask)            // Obtener una tarea por su ID
		tasks.PUT("/:id", handler.UpdateTask)         // Actualizar una tarea existente
		tasks.POST("/:id/toggle", handler.ToggleTask) // Completar / reabrir
		tasks.DELETE("/:id", handler.DeleteTask)      // Eliminar una tarea
	}
}
