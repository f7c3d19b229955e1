package config

// Schema is the JSON schema of tabkeeper.json.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "session_directory": {"type": "string"},
    "session_options": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "runtime_path": {"type": "string"},
    "history_file": {"type": "string"},
    "metrics_addr": {"type": "string"},
    "browser": {
      "type": "object",
      "properties": {
        "control_url": {"type": "string"},
        "launch": {"type": "boolean"},
        "chrome_path": {"type": "string"},
        "headless": {"type": "boolean"},
        "no_sandbox": {"type": "boolean"},
        "user_data_dir": {"type": "string"},
        "cdp_port": {"type": "integer", "minimum": 0, "maximum": 65535},
        "timeout": {"type": ["string", "integer"]},
        "security": {
          "type": "object",
          "properties": {
            "allow_file_urls": {"type": "boolean"},
            "allow_localhost_urls": {"type": "boolean"},
            "allowed_domains": {"type": "array", "items": {"type": "string"}},
            "blocked_domains": {"type": "array", "items": {"type": "string"}}
          }
        }
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "file": {"type": "string"},
        "max_size": {"type": "integer", "minimum": 0},
        "max_age": {"type": "integer", "minimum": 0},
        "compress": {"type": "boolean"},
        "redaction": {"type": "boolean"},
        "pretty": {"type": "boolean"}
      }
    },
    "autosave": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "schedule": {"type": "string"},
        "file": {"type": "string"},
        "keep": {"type": "integer", "minimum": 0},
        "max_age": {"type": "integer", "minimum": 0}
      }
    },
    "tracing": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "endpoint": {"type": "string"},
        "service_name": {"type": "string"}
      }
    }
  }
}`
