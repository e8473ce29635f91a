package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "UniTrack Scheduling API",
        "description": "Class session scheduling, conflict detection and time suggestions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Session scheduling and conflict checks"},
        {"name": "Rooms", "description": "Room catalogue and availability"},
        {"name": "Lecturers", "description": "Lecturer free-time lookups"},
        {"name": "System", "description": "Operational status"}
    ],
    "paths": {
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Schedule a session",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Scheduling conflict"}
                }
            }
        },
        "/sessions/check-conflicts": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Dry-run conflict detection for a candidate interval",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions/suggest-times": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Suggest conflict-free time and room combinations",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get session detail",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Sessions"],
                "summary": "Reschedule or edit a session",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Scheduling conflict"}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Delete a session",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/sessions/{id}/cancel": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Cancel a session",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/sessions/{id}/children": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List occurrences generated from a recurring session",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Rooms"],
                "summary": "Register a room",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/rooms/check-availability": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Check whether a room is free for an interval",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rooms/{id}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Get room detail",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/lecturers/{id}/free-times": {
            "get": {
                "tags": ["Lecturers"],
                "summary": "List a lecturer's free slots on a date",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/course-assignments/{id}": {
            "get": {
                "tags": ["CourseAssignments"],
                "summary": "Get a course assignment",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/system/status": {
            "get": {
                "tags": ["System"],
                "summary": "Aggregate runtime metrics snapshot",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
