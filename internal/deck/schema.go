package deck

// deckSchema describes the authored deck document. It catches structural
// mistakes (wrong types, unknown layouts, missing fields) with readable
// messages before decoding; cross-field rules live in Deck.Validate.
const deckSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title", "slides"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": "string"},
    "pass_percent": {"type": "integer", "minimum": 1, "maximum": 100},
    "slides": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/definitions/slide"}
    }
  },
  "definitions": {
    "slide": {
      "type": "object",
      "required": ["id", "layout"],
      "properties": {
        "id": {"type": "integer", "minimum": 1},
        "layout": {"enum": ["title", "bullets", "split", "pyramid", "quote", "comparison", "final_score"]},
        "title": {"type": "string"},
        "subtitle": {"type": "string"},
        "main_text": {"type": "string"},
        "footer": {"type": "string"},
        "highlight_box": {"type": "string"},
        "quote_author": {"type": "string"},
        "bullets": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["text"],
            "properties": {
              "text": {"type": "string", "minLength": 1},
              "detail": {"type": "string"}
            }
          }
        },
        "comparison": {
          "type": "object",
          "required": ["left_title", "left_points", "right_title", "right_points"],
          "properties": {
            "left_title": {"type": "string"},
            "left_points": {"type": "array", "items": {"type": "string"}},
            "right_title": {"type": "string"},
            "right_points": {"type": "array", "items": {"type": "string"}}
          }
        },
        "quizzes": {
          "type": "array",
          "items": {"$ref": "#/definitions/quiz"}
        }
      }
    },
    "quiz": {
      "type": "object",
      "required": ["id", "question", "options", "correct_answer"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "question": {"type": "string", "minLength": 1},
        "options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
        "correct_answer": {"type": "integer", "minimum": 0},
        "explanation": {"type": "string"}
      }
    }
  }
}`
