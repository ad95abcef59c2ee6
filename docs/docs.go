// Package docs is generated by swaggo/swag from the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "OrgID": {"type": "apiKey", "name": "X-Org-ID", "in": "header"},
        "UserID": {"type": "apiKey", "name": "X-User-ID", "in": "header"},
        "UserRole": {"type": "apiKey", "name": "X-User-Role", "in": "header"}
    },
    "security": [{"OrgID": [], "UserID": [], "UserRole": []}],
    "paths": {
        "/candidates": {
            "get": {
                "description": "Newest first, optionally filtered by job and stage",
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "List candidates",
                "parameters": [
                    {"type": "string", "description": "Position applied for", "name": "jobId", "in": "query"},
                    {"type": "string", "description": "Pipeline stage", "name": "stage", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Candidate"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Create candidate",
                "parameters": [
                    {"description": "Candidate profile", "name": "candidate", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CandidateInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Candidate"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/candidates/bulk": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Bulk import candidates",
                "parameters": [
                    {"description": "Candidate profiles", "name": "candidates", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/models.CandidateInput"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BulkImportResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/candidates/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Search candidates",
                "parameters": [
                    {"type": "string", "description": "Search text", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Candidate"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/candidates/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Get candidate",
                "parameters": [
                    {"type": "string", "description": "Candidate ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Candidate"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Stage, scores, timeline and notes cannot be patched. Emails and phones are appended.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Update candidate profile",
                "parameters": [
                    {"type": "string", "description": "Candidate ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "patch", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CandidatePatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Candidate"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["candidates"],
                "summary": "Delete candidate",
                "parameters": [
                    {"type": "string", "description": "Candidate ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/candidates/{id}/stage": {
            "put": {
                "description": "Requires role recruiter, manager or admin",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Change candidate stage",
                "parameters": [
                    {"type": "string", "description": "Candidate ID", "name": "id", "in": "path", "required": true},
                    {"description": "Target stage", "name": "stage", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.StageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Candidate"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/candidates/{id}/next-stages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Legal next stages",
                "parameters": [
                    {"type": "string", "description": "Candidate ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.NextStagesResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/candidates/{id}/notes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Add note",
                "parameters": [
                    {"type": "string", "description": "Candidate ID", "name": "id", "in": "path", "required": true},
                    {"description": "Note", "name": "note", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.NoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Candidate"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/candidates/{id}/scores": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Record score",
                "parameters": [
                    {"type": "string", "description": "Candidate ID", "name": "id", "in": "path", "required": true},
                    {"description": "Score", "name": "score", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.ScoreRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Candidate"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "metadata": {"type": "object", "additionalProperties": true}
            }
        },
        "api.StageRequest": {
            "type": "object",
            "properties": {"stage": {"type": "string", "example": "screening"}}
        },
        "api.NoteRequest": {
            "type": "object",
            "properties": {"text": {"type": "string", "example": "Strong systems design answers"}}
        },
        "api.ScoreRequest": {
            "type": "object",
            "properties": {
                "rubricId": {"type": "string", "example": "backend-v2"},
                "values": {"type": "object", "additionalProperties": true},
                "finalScore": {"type": "number", "example": 4},
                "comments": {"type": "string"}
            }
        },
        "api.NextStagesResponse": {
            "type": "object",
            "properties": {
                "candidateId": {"type": "string"},
                "next": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.TimelineEntry": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "details": {"type": "string"},
                "performedBy": {"type": "string"},
                "timestamp": {"type": "string"},
                "from": {"type": "string"},
                "to": {"type": "string"}
            }
        },
        "models.Note": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "authorId": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "models.ScoreEntry": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "rubricId": {"type": "string"},
                "values": {"type": "object", "additionalProperties": true},
                "finalScore": {"type": "number"},
                "comments": {"type": "string"}
            }
        },
        "models.Candidate": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "orgId": {"type": "string"},
                "name": {"type": "string"},
                "emails": {"type": "array", "items": {"type": "string"}},
                "phones": {"type": "array", "items": {"type": "string"}},
                "positionApplied": {"type": "string"},
                "stage": {"type": "string", "enum": ["applied", "screening", "interview", "offer", "hired", "rejected", "archived"]},
                "source": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "priority": {"type": "boolean"},
                "isTalentPool": {"type": "boolean"},
                "finalScore": {"type": "integer"},
                "scores": {"type": "array", "items": {"$ref": "#/definitions/models.ScoreEntry"}},
                "timeline": {"type": "array", "items": {"$ref": "#/definitions/models.TimelineEntry"}},
                "notes": {"type": "array", "items": {"$ref": "#/definitions/models.Note"}},
                "version": {"type": "integer"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.CandidateInput": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "emails": {"type": "array", "items": {"type": "string"}},
                "phones": {"type": "array", "items": {"type": "string"}},
                "positionApplied": {"type": "string"},
                "source": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "priority": {"type": "boolean"},
                "isTalentPool": {"type": "boolean"},
                "linkedin": {"type": "string"},
                "ratings": {"type": "integer"}
            }
        },
        "models.CandidatePatch": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "emails": {"type": "array", "items": {"type": "string"}},
                "phones": {"type": "array", "items": {"type": "string"}},
                "positionApplied": {"type": "string"},
                "source": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "noticePeriod": {"type": "string"},
                "expectedSalary": {"type": "string"},
                "rejectionReason": {"type": "string"},
                "ratings": {"type": "integer"}
            }
        },
        "models.BulkImportResult": {
            "type": "object",
            "properties": {
                "created": {"type": "array", "items": {"$ref": "#/definitions/models.Candidate"}},
                "failed": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "index": {"type": "integer"},
                            "code": {"type": "string"},
                            "message": {"type": "string"}
                        }
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Hiring Pipeline API",
	Description:      "Multi-tenant candidate pipeline: stage transitions, scores, notes and audit timeline.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
