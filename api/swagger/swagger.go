package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic Timetable API",
        "description": "Timetable scheduling and conflict resolution for class sessions and exam sittings.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Timetable",
            "description": "Conflict checks, venue allocation and booking writes"
        },
        {
            "name": "Observability",
            "description": "Health, readiness and metrics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Readiness probe covering Postgres and Redis",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "A dependency is unavailable"
                    }
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Aggregated runtime metrics",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/constraints": {
            "get": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Scheduling constraints in effect",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/conflicts/check": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Check a candidate booking against the timetable",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CheckConflictsRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/venues/allocate": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Pick the smallest room with enough remaining capacity",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AllocateVenueRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/assignments/find": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Find a feasible day and window for a lecturer",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/FindAssignmentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/class-sessions": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Book one class session",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ScheduleClassSessionRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "No room or slot satisfies the session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/class-sessions/bulk": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Build the weekly class timetable",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BulkClassScheduleRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/exams/bulk": {
            "post": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Build the exam timetable over a date range",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BulkScheduleRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/bookings": {
            "get": {
                "tags": [
                    "Timetable"
                ],
                "summary": "List bookings",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "kind",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "day",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "date",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "date_from",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "date_to",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "venue",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "lecturer",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "class_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "group_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "semester_id",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "unit_id",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetable/bookings/{id}": {
            "put": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Edit a booking and re-validate it",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateBookingRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Timetable"
                ],
                "summary": "Delete a booking",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "CheckConflictsRequest": {
            "type": "object",
            "properties": {
                "kind": {
                    "type": "string"
                },
                "day": {
                    "type": "string"
                },
                "date": {
                    "type": "string"
                },
                "start_time": {
                    "type": "string"
                },
                "end_time": {
                    "type": "string"
                },
                "venue": {
                    "type": "string"
                },
                "lecturer": {
                    "type": "string"
                },
                "teaching_mode": {
                    "type": "string"
                },
                "headcount": {
                    "type": "integer"
                },
                "group_id": {
                    "type": "string"
                },
                "class_ids": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "semester_id": {
                    "type": "string"
                },
                "exclude_booking_id": {
                    "type": "string"
                }
            },
            "required": [
                "start_time",
                "end_time"
            ]
        },
        "AllocateVenueRequest": {
            "type": "object",
            "properties": {
                "kind": {
                    "type": "string"
                },
                "headcount": {
                    "type": "integer"
                },
                "day": {
                    "type": "string"
                },
                "date": {
                    "type": "string"
                },
                "start_time": {
                    "type": "string"
                },
                "end_time": {
                    "type": "string"
                },
                "preferred_mode": {
                    "type": "string"
                },
                "exclude_booking_id": {
                    "type": "string"
                },
                "semester_id": {
                    "type": "string"
                },
                "rooms": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "headcount",
                "start_time",
                "end_time"
            ]
        },
        "FindAssignmentRequest": {
            "type": "object",
            "properties": {
                "lecturer": {
                    "type": "string"
                },
                "duration_hours": {
                    "type": "integer"
                },
                "preferred_mode": {
                    "type": "string"
                },
                "group_id": {
                    "type": "string"
                },
                "day": {
                    "type": "string"
                },
                "venue": {
                    "type": "string"
                },
                "headcount": {
                    "type": "integer"
                },
                "semester_id": {
                    "type": "string"
                }
            },
            "required": [
                "lecturer",
                "duration_hours"
            ]
        },
        "ScheduleClassSessionRequest": {
            "type": "object",
            "properties": {
                "unit_id": {
                    "type": "string"
                },
                "class_id": {
                    "type": "string"
                },
                "group_id": {
                    "type": "string"
                },
                "semester_id": {
                    "type": "string"
                },
                "program_id": {
                    "type": "string"
                },
                "school_id": {
                    "type": "string"
                },
                "lecturer": {
                    "type": "string"
                },
                "duration_hours": {
                    "type": "integer"
                },
                "headcount": {
                    "type": "integer"
                },
                "teaching_mode": {
                    "type": "string"
                },
                "day": {
                    "type": "string"
                },
                "rooms": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "unit_id",
                "class_id",
                "semester_id",
                "lecturer",
                "duration_hours"
            ]
        },
        "BulkClassItem": {
            "type": "object",
            "properties": {
                "unit_id": {
                    "type": "string"
                },
                "class_id": {
                    "type": "string"
                },
                "group_id": {
                    "type": "string"
                },
                "lecturer": {
                    "type": "string"
                },
                "duration_hours": {
                    "type": "integer"
                },
                "sessions_per_week": {
                    "type": "integer"
                },
                "headcount": {
                    "type": "integer"
                },
                "teaching_mode": {
                    "type": "string"
                },
                "day": {
                    "type": "string"
                }
            },
            "required": [
                "unit_id",
                "class_id",
                "lecturer",
                "duration_hours"
            ]
        },
        "BulkClassScheduleRequest": {
            "type": "object",
            "properties": {
                "semester_id": {
                    "type": "string"
                },
                "program_id": {
                    "type": "string"
                },
                "school_id": {
                    "type": "string"
                },
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/BulkClassItem"
                    }
                },
                "rooms": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "semester_id",
                "items"
            ]
        },
        "BulkExamItem": {
            "type": "object",
            "properties": {
                "unit_id": {
                    "type": "string"
                },
                "class_id": {
                    "type": "string"
                },
                "start_time": {
                    "type": "string"
                },
                "end_time": {
                    "type": "string"
                }
            },
            "required": [
                "unit_id",
                "class_id"
            ]
        },
        "BulkScheduleRequest": {
            "type": "object",
            "properties": {
                "semester_id": {
                    "type": "string"
                },
                "program_id": {
                    "type": "string"
                },
                "school_id": {
                    "type": "string"
                },
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/BulkExamItem"
                    }
                },
                "start_date": {
                    "type": "string"
                },
                "end_date": {
                    "type": "string"
                },
                "exam_duration_hours": {
                    "type": "integer"
                },
                "gap_days": {
                    "type": "integer"
                },
                "excluded_weekdays": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "max_sessions_per_day": {
                    "type": "integer"
                },
                "rooms": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "time_windows": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "semester_id",
                "items",
                "start_date",
                "end_date",
                "exam_duration_hours"
            ]
        },
        "UpdateBookingRequest": {
            "type": "object",
            "properties": {
                "day": {
                    "type": "string"
                },
                "date": {
                    "type": "string"
                },
                "start_time": {
                    "type": "string"
                },
                "end_time": {
                    "type": "string"
                },
                "venue": {
                    "type": "string"
                },
                "location": {
                    "type": "string"
                },
                "teaching_mode": {
                    "type": "string"
                },
                "headcount": {
                    "type": "integer"
                },
                "lecturer": {
                    "type": "string"
                },
                "group_id": {
                    "type": "string"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "details": {
                    "type": "object"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
