package shader

// MeshVertex transforms skinned-free meshes into world space.
const MeshVertex = `#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;

uniform mat4 uModel;
uniform mat4 uView;
uniform mat4 uProjection;

out vec3 vWorldPos;
out vec3 vNormal;
out vec2 vUV;

void main() {
	vec4 world = uModel * vec4(aPosition, 1.0);
	vWorldPos = world.xyz;
	vNormal = mat3(transpose(inverse(uModel))) * aNormal;
	vUV = aTexCoord;
	gl_Position = uProjection * uView * world;
}
`

// MeshFragment is a metallic-roughness approximation lit by a hemisphere,
// a key light and a rim light, with optional equirectangular reflections.
// The diffuse statement is the hair tint anchor.
const MeshFragment = `#version 410 core

in vec3 vWorldPos;
in vec3 vNormal;
in vec2 vUV;

out vec4 FragColor;

uniform vec3  diffuse;
uniform float opacity;
uniform float metalness;
uniform float roughness;
uniform bool  unlit;

uniform sampler2D map;
uniform bool  hasMap;
uniform bool  flipY;
uniform bool  mapSRGB;

uniform vec3  uCameraPos;
uniform vec3  uSkyColor;
uniform vec3  uGroundColor;
uniform vec3  uKeyDir;
uniform vec3  uKeyColor;
uniform vec3  uRimDir;
uniform vec3  uRimColor;

uniform sampler2D envMap;
uniform bool  hasEnv;
uniform float envIntensity;
uniform float envRotation;

const float PI = 3.14159265359;

vec2 equirectUV(vec3 dir) {
	float c = cos(envRotation);
	float s = sin(envRotation);
	dir = vec3(c * dir.x + s * dir.z, dir.y, -s * dir.x + c * dir.z);
	float u = atan(dir.z, dir.x) / (2.0 * PI) + 0.5;
	float v = acos(clamp(dir.y, -1.0, 1.0)) / PI;
	return vec2(u, v);
}

void main() {
	vec4 diffuseColor = vec4( diffuse, opacity );

	if (hasMap) {
		vec2 uv = flipY ? vec2(vUV.x, 1.0 - vUV.y) : vUV;
		vec4 texel = texture(map, uv);
		if (mapSRGB) {
			texel.rgb = pow(texel.rgb, vec3(2.2));
		}
		diffuseColor *= texel;
	}
	if (unlit) {
		FragColor = vec4(pow(diffuseColor.rgb, vec3(1.0 / 2.2)), diffuseColor.a);
		return;
	}

	vec3 n = normalize(vNormal);
	if (!gl_FrontFacing) {
		n = -n;
	}
	vec3 v = normalize(uCameraPos - vWorldPos);

	vec3 hemi = mix(uGroundColor, uSkyColor, n.y * 0.5 + 0.5);
	float key = max(dot(n, normalize(-uKeyDir)), 0.0);
	float rim = pow(1.0 - max(dot(n, v), 0.0), 3.0) * max(dot(n, normalize(-uRimDir)), 0.0);

	vec3 h = normalize(normalize(-uKeyDir) + v);
	float shininess = mix(96.0, 4.0, roughness);
	float spec = pow(max(dot(n, h), 0.0), shininess) * (1.0 - roughness) * 0.5;

	vec3 albedo = diffuseColor.rgb * (1.0 - metalness * 0.8);
	vec3 color = albedo * (hemi + uKeyColor * key) + uRimColor * rim + uKeyColor * spec;

	if (hasEnv) {
		vec3 r = reflect(-v, n);
		vec3 env = pow(textureLod(envMap, equirectUV(r), roughness * 8.0).rgb, vec3(2.2));
		vec3 f0 = mix(vec3(0.04), diffuseColor.rgb, metalness);
		color += env * f0 * envIntensity;
	}

	FragColor = vec4(pow(color, vec3(1.0 / 2.2)), diffuseColor.a);
}
`

// BackgroundVertex emits a full-screen triangle from gl_VertexID.
const BackgroundVertex = `#version 410 core

out vec2 vNDC;

void main() {
	vec2 pos = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2) * 2.0 - 1.0;
	vNDC = pos;
	gl_Position = vec4(pos, 1.0, 1.0);
}
`

// BackgroundFragment samples an equirectangular panorama along the view
// ray. Blurriness selects a coarser mip level.
const BackgroundFragment = `#version 410 core

in vec2 vNDC;
out vec4 FragColor;

uniform vec3  uCameraRight;
uniform vec3  uCameraUp;
uniform vec3  uCameraForward;
uniform float uTanHalfFov;
uniform float uAspect;
uniform sampler2D panorama;
uniform float blurriness;
uniform float intensity;
uniform float rotation;

const float PI = 3.14159265359;

void main() {
	vec3 dir = normalize(uCameraForward
		+ uCameraRight * vNDC.x * uTanHalfFov * uAspect
		+ uCameraUp * vNDC.y * uTanHalfFov);

	float c = cos(rotation);
	float s = sin(rotation);
	dir = vec3(c * dir.x + s * dir.z, dir.y, -s * dir.x + c * dir.z);

	vec2 uv = vec2(atan(dir.z, dir.x) / (2.0 * PI) + 0.5, acos(clamp(dir.y, -1.0, 1.0)) / PI);
	vec3 color = textureLod(panorama, uv, blurriness * 8.0).rgb * intensity;
	FragColor = vec4(color, 1.0);
}
`
